package apimapv1

import (
	"context"
)

func listMaps(ctx context.Context) ([]*MapResponse, error) {

	s := GetServicer(ctx)

	names, err := s.ListMaps()
	if err != nil {
		return nil, err
	}

	result := []*MapResponse{}
	for _, name := range names {
		m, err := s.GetMap(name)
		if err != nil {
			continue // dropped meanwhile
		}
		item, err := newMapResponse(name, m)
		if err != nil {
			continue
		}
		result = append(result, item)
	}

	return result, nil
}
