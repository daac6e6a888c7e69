package apimapv1

import (
	"context"
	"errors"
	"net/http"

	"github.com/fulldump/ndmf/database"
	"github.com/fulldump/ndmf/service"
)

type createMapRequest struct {
	Name string `json:"name"`
}

func createMap(ctx context.Context, w http.ResponseWriter, input *createMapRequest) (*MapResponse, error) {

	s := GetServicer(ctx)

	m, err := s.CreateMap(input.Name)
	if err == service.ErrorMapAlreadyExists {
		w.WriteHeader(http.StatusConflict)
		return nil, err
	}
	if errors.Is(err, database.ErrInvalidMapName) {
		w.WriteHeader(http.StatusBadRequest)
		return nil, err
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return nil, err
	}

	response, err := newMapResponse(input.Name, m)
	if err != nil {
		return nil, err
	}

	w.WriteHeader(http.StatusCreated)
	return response, nil
}
