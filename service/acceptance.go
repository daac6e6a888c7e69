package service

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"
)

type JSON = map[string]interface{}

// Acceptance runs the HTTP contract against a server built with the default
// layout (512 byte blocks, 32 byte names) and no compression
func Acceptance(a *biff.A, apiRequest func(method, path string) *apitest.Request) {

	emptyMap := JSON{
		"name":           "my-map",
		"block_size":     512,
		"blocks":         1,
		"free_blocks":    0,
		"file_size":      512,
		"entries":        0,
		"index_segments": 1,
		"cached":         0,
	}

	a.Alternative("Create map", func(a *biff.A) {
		resp := apiRequest("POST", "/maps").
			WithBodyJson(JSON{
				"name": "my-map",
			}).Do()
		Save(resp, "Create map", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusCreated)
		biff.AssertEqualJson(resp.BodyJson(), emptyMap)

		a.Alternative("Create map twice", func(a *biff.A) {
			resp := apiRequest("POST", "/maps").
				WithBodyJson(JSON{
					"name": "my-map",
				}).Do()
			Save(resp, "Create map - already exists", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusConflict)
			biff.AssertEqualJson(resp.BodyJson(), JSON{
				"error": JSON{
					"message":     "map already exists",
					"description": "Unexpected error",
				},
			})
		})

		a.Alternative("Retrieve map", func(a *biff.A) {
			resp := apiRequest("GET", "/maps/my-map").Do()
			Save(resp, "Retrieve map", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), emptyMap)
		})

		a.Alternative("List maps", func(a *biff.A) {
			resp := apiRequest("GET", "/maps").Do()
			Save(resp, "List maps", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), []JSON{emptyMap})
		})

		a.Alternative("Drop map", func(a *biff.A) {
			resp := apiRequest("POST", "/maps/my-map:dropMap").Do()
			Save(resp, "Drop map", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqual(resp.BodyString(), "")

			a.Alternative("Get dropped map", func(a *biff.A) {
				resp := apiRequest("GET", "/maps/my-map").Do()
				Save(resp, "Get map - not found", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
			})
		})

		a.Alternative("Verify empty map", func(a *biff.A) {
			resp := apiRequest("POST", "/maps/my-map:verify").Do()

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			body := resp.BodyJsonMap()
			biff.AssertEqual(body["ok"], true)
			biff.AssertEqual(body["block_map"], "I")
		})

		a.Alternative("Put entry", func(a *biff.A) {
			resp := apiRequest("PUT", "/maps/my-map/entries/alice").
				WithBodyString("hello").Do()
			Save(resp, "Put entry", `
				Stores the request body as the value of the entry. Returns 201
				when the entry is new and 200 when it replaces a previous value.
			`)

			biff.AssertEqual(resp.StatusCode, http.StatusCreated)
			biff.AssertEqual(resp.BodyString(), "")

			a.Alternative("Get entry", func(a *biff.A) {
				resp := apiRequest("GET", "/maps/my-map/entries/alice").Do()
				Save(resp, "Get entry", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				biff.AssertEqual(resp.BodyString(), "hello")
				biff.AssertEqual(resp.Header.Get("Content-Type"), "application/octet-stream")
			})

			a.Alternative("Head entry", func(a *biff.A) {
				resp := apiRequest("HEAD", "/maps/my-map/entries/alice").Do()
				biff.AssertEqual(resp.StatusCode, http.StatusOK)

				resp = apiRequest("HEAD", "/maps/my-map/entries/bob").Do()
				biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
			})

			a.Alternative("Replace entry", func(a *biff.A) {
				resp := apiRequest("PUT", "/maps/my-map/entries/alice").
					WithBodyString("bye").Do()
				Save(resp, "Put entry - replace", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)

				resp = apiRequest("GET", "/maps/my-map/entries/alice").Do()
				biff.AssertEqual(resp.BodyString(), "bye")
			})

			a.Alternative("Delete entry", func(a *biff.A) {
				resp := apiRequest("DELETE", "/maps/my-map/entries/alice").Do()
				Save(resp, "Delete entry", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)

				resp = apiRequest("GET", "/maps/my-map/entries/alice").Do()
				Save(resp, "Get entry - not found", ``)
				biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
				biff.AssertEqualJson(resp.BodyJson(), JSON{
					"error": JSON{
						"message":     "entry not found: 'alice'",
						"description": "Unexpected error",
					},
				})

				resp = apiRequest("DELETE", "/maps/my-map/entries/alice").Do()
				biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
			})

			a.Alternative("Map stats", func(a *biff.A) {
				resp := apiRequest("GET", "/maps/my-map").Do()

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				body := resp.BodyJsonMap()
				biff.AssertEqualJson(body["entries"], 1)
				biff.AssertEqualJson(body["blocks"], 2)
			})

			a.Alternative("Verify", func(a *biff.A) {
				resp := apiRequest("POST", "/maps/my-map:verify").Do()
				Save(resp, "Verify map", `
					Walks the index chain and every block of the file and
					reports orphan and missing segments.
				`)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				body := resp.BodyJsonMap()
				biff.AssertEqual(body["ok"], true)
				biff.AssertEqual(body["block_map"], "ID")
				biff.AssertEqualJson(body["entries"], 1)
				biff.AssertEqualJson(body["issues"], []JSON{})
			})

			a.Alternative("Directory", func(a *biff.A) {
				apiRequest("PUT", "/maps/my-map/entries/bob").
					WithBodyString("world").Do()

				resp := apiRequest("POST", "/maps/my-map:directory").Do()
				Save(resp, "Directory", ``)

				biff.AssertEqual(resp.StatusCode, http.StatusOK)
				expectDirectory(resp, []JSON{
					{"name": "alice", "block": 1},
					{"name": "bob", "block": 2},
				})

				a.Alternative("Directory with filter", func(a *biff.A) {
					resp := apiRequest("POST", "/maps/my-map:directory").
						WithBodyJson(JSON{
							"filter": JSON{
								"name": "bob",
							},
						}).Do()
					Save(resp, "Directory - filter", ``)

					biff.AssertEqual(resp.StatusCode, http.StatusOK)
					expectDirectory(resp, []JSON{
						{"name": "bob", "block": 2},
					})
				})

				a.Alternative("Directory with limit", func(a *biff.A) {
					resp := apiRequest("POST", "/maps/my-map:directory").
						WithBodyJson(JSON{
							"skip":  1,
							"limit": 1,
						}).Do()

					biff.AssertEqual(resp.StatusCode, http.StatusOK)
					expectDirectory(resp, []JSON{
						{"name": "bob", "block": 2},
					})
				})
			})
		})

		a.Alternative("Put empty entry", func(a *biff.A) {
			resp := apiRequest("PUT", "/maps/my-map/entries/empty").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusCreated)

			resp = apiRequest("GET", "/maps/my-map/entries/empty").Do()
			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqual(resp.BodyString(), "")
		})

		a.Alternative("Entry name too long", func(a *biff.A) {
			resp := apiRequest("PUT", "/maps/my-map/entries/"+strings.Repeat("x", 33)).
				WithBodyString("hello").Do()

			biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
		})
	})

	a.Alternative("Create map with invalid name", func(a *biff.A) {
		resp := apiRequest("POST", "/maps").
			WithBodyJson(JSON{
				"name": ".hidden",
			}).Do()

		biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
	})

	a.Alternative("Map not found", func(a *biff.A) {
		resp := apiRequest("GET", "/maps/missing").Do()
		biff.AssertEqual(resp.StatusCode, http.StatusNotFound)

		resp = apiRequest("PUT", "/maps/missing/entries/alice").
			WithBodyString("hello").Do()
		biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
	})
}

func expectDirectory(resp *apitest.Response, expected []JSON) {
	dec := json.NewDecoder(strings.NewReader(resp.BodyString()))
	obtained := []interface{}{}
	for dec.More() {
		var item interface{}
		if err := dec.Decode(&item); err != nil {
			break
		}
		obtained = append(obtained, item)
	}
	biff.AssertEqualJson(obtained, expected)
}
