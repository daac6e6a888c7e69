package apimapv1

import (
	"context"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/ndmf/service"
)

func dropMap(ctx context.Context, w http.ResponseWriter) error {

	s := GetServicer(ctx)

	mapName := box.GetUrlParameter(ctx, "mapName")

	err := s.DeleteMap(mapName)
	if err == service.ErrorMapNotFound {
		w.WriteHeader(http.StatusNotFound)
		return err
	}
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusOK)
	return nil
}
