package apimapv1

import (
	"context"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/ndmf/ndmf"
	"github.com/fulldump/ndmf/service"
)

type verifyResponse struct {
	OK bool `json:"ok"`
	*ndmf.Report
}

func verify(ctx context.Context, w http.ResponseWriter) (*verifyResponse, error) {

	s := GetServicer(ctx)

	mapName := box.GetUrlParameter(ctx, "mapName")

	report, err := s.VerifyMap(mapName)
	if err == service.ErrorMapNotFound {
		w.WriteHeader(http.StatusNotFound)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return &verifyResponse{
		OK:     report.OK(),
		Report: report,
	}, nil
}
