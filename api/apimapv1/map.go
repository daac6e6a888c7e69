package apimapv1

import (
	"github.com/fulldump/ndmf/database"
	"github.com/fulldump/ndmf/ndmf"
)

type MapResponse struct {
	Name string `json:"name"`
	ndmf.Stats
}

func newMapResponse(name string, m *database.Map) (*MapResponse, error) {
	stats, err := m.Stats()
	if err != nil {
		return nil, err
	}
	return &MapResponse{
		Name:  name,
		Stats: stats,
	}, nil
}
