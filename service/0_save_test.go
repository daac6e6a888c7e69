package service

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"
)

func TestFormatBody(t *testing.T) {

	biff.Alternative("Empty", func(a *biff.A) {
		biff.AssertEqual(formatBody(nil, "application/json"), "")
	})

	biff.Alternative("JSON object", func(a *biff.A) {
		got := formatBody([]byte(`{"name":"users","blocks":3}`), "application/json")
		biff.AssertEqual(got, "{\n    \"name\": \"users\",\n    \"blocks\": 3\n}")
	})

	biff.Alternative("JSON lines", func(a *biff.A) {
		got := formatBody([]byte("{\"name\":\"a\"}\n{\"name\":\"b\"}\n"), "")
		biff.AssertEqual(got, "{\n    \"name\": \"a\"\n}\n{\n    \"name\": \"b\"\n}")
	})

	biff.Alternative("Text entry", func(a *biff.A) {
		got := formatBody([]byte("hello world"), "application/octet-stream")
		biff.AssertEqual(got, "hello world")
	})

	biff.Alternative("Octet body is never indented", func(a *biff.A) {
		got := formatBody([]byte(`{"a":1}`), "application/octet-stream")
		biff.AssertEqual(got, `{"a":1}`)
	})

	biff.Alternative("Binary entry", func(a *biff.A) {
		got := formatBody([]byte{0x00, 0xff, 0x10}, "application/octet-stream")
		biff.AssertEqual(got, "<3 bytes: 00ff10>")
	})

	biff.Alternative("Long binary entry is cropped", func(a *biff.A) {
		body := bytes.Repeat([]byte{0x01}, previewSize+8)
		got := formatBody(body, "application/octet-stream")
		biff.AssertEqual(got, "<40 bytes: "+strings.Repeat("01", previewSize)+" ...>")
	})
}

func TestCurlData(t *testing.T) {

	biff.AssertEqual(curlData([]byte("it's"), "application/octet-stream"), `--data-binary 'it'\''s'`)
	biff.AssertEqual(curlData([]byte{0x00, 0x01}, "application/octet-stream"), "--data-binary @value.bin")
}

func TestRenderExample(t *testing.T) {

	u, _ := url.Parse("http://localhost/v1/maps/users/entries/alice")
	response := &apitest.Response{
		Response: http.Response{
			Status: "200 OK",
			Proto:  "HTTP/1.1",
			Header: http.Header{
				"Content-Type": {"application/octet-stream"},
				"Date":         {"Wed, 14 Oct 2026 10:00:00 GMT"},
			},
			Body: io.NopCloser(bytes.NewReader([]byte{0xca, 0xfe})),
			Request: &http.Request{
				Method: http.MethodGet,
				URL:    u,
				Proto:  "HTTP/1.1",
				Header: http.Header{
					"X-B": {"2"},
					"X-A": {"1"},
				},
			},
		},
	}

	got := renderExample(response, "Get entry", "\n\tReads one entry.\n\t")

	biff.AssertTrue(strings.HasPrefix(got, "# Get entry\n"))
	biff.AssertTrue(strings.Contains(got, "Reads one entry."))
	biff.AssertTrue(strings.Contains(got, `curl "https://`+exampleHost+`/v1/maps/users/entries/alice" \`+"\n"+`-H "X-A: 1" \`+"\n"+`-H "X-B: 2"`))
	biff.AssertTrue(strings.Contains(got, "GET /v1/maps/users/entries/alice HTTP/1.1\nHost: "+exampleHost+"\nX-A: 1\nX-B: 2\n"))
	biff.AssertTrue(strings.Contains(got, "HTTP/1.1 200 OK\nContent-Type: application/octet-stream\n\n<2 bytes: cafe>\n"))
	biff.AssertFalse(strings.Contains(got, "Date:"))
}

func TestMdCropTabs(t *testing.T) {

	got := md_crop_tabs("\n\t\tfirst\n\t\t\tnested\n\t")
	biff.AssertEqual(got, "\nfirst\n\tnested\n\t")
}
