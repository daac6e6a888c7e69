package apimapv1

import (
	"github.com/fulldump/box"

	"github.com/fulldump/ndmf/service"
)

func BuildV1Map(v1 *box.R, s service.Servicer) *box.R {

	maps := v1.Resource("/maps").
		WithActions(
			box.Get(listMaps),
			box.Post(createMap),
		)

	v1.Resource("/maps/{mapName}").
		WithActions(
			box.Get(getMap),
			box.ActionPost(dropMap),
			box.ActionPost(verify),
			box.ActionPost(directory),
		)

	v1.Resource("/maps/{mapName}/entries/{entryName}").
		WithActions(
			box.Get(getEntry),
			box.Head(headEntry),
			box.Put(putEntry),
			box.Delete(deleteEntry),
		)

	return maps
}
