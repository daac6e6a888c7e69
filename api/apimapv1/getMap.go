package apimapv1

import (
	"context"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/ndmf/database"
	"github.com/fulldump/ndmf/service"
)

func getMap(ctx context.Context) (*MapResponse, error) {

	mapName := box.GetUrlParameter(ctx, "mapName")

	m, err := lookupMap(ctx)
	if err != nil {
		return nil, err
	}

	return newMapResponse(mapName, m)
}

// lookupMap resolves {mapName}, a missing map is a 404
func lookupMap(ctx context.Context) (*database.Map, error) {

	s := GetServicer(ctx)
	mapName := box.GetUrlParameter(ctx, "mapName")

	m, err := s.GetMap(mapName)
	if err == service.ErrorMapNotFound {
		box.GetResponse(ctx).WriteHeader(http.StatusNotFound)
		return nil, err
	}

	return m, err
}
