package service

import (
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fulldump/apitest"
	"github.com/go-json-experiment/json/jsontext"
)

const exampleHost = "ndmf.example.com"

// previewSize is the number of bytes rendered of a binary body
const previewSize = 32

// Save renders a request/response pair as markdown into NDMF_API_EXAMPLES,
// nothing is written when the variable is empty.
func Save(response *apitest.Response, title, description string) {
	writeFile(strings.ToLower(title)+".md", renderExample(response, title, description))
}

func renderExample(response *apitest.Response, title, description string) string {

	request := response.Request
	requestBody := response.BodyRequestBytes()

	query := request.URL.RawQuery
	if query != "" {
		query = "?" + query
	}

	s := &strings.Builder{}

	fmt.Fprintf(s, "# %s\n", title)
	s.WriteString(md_description(description) + "\n")

	s.WriteString("Curl example:\n\n```sh\n")
	s.WriteString("curl")
	if request.Method != http.MethodGet {
		s.WriteString(" -X " + request.Method)
	}
	s.WriteString(` "https://` + exampleHost + request.URL.Path + query + `"`)
	for _, k := range sortedKeys(request.Header) {
		for _, v := range request.Header[k] {
			s.WriteString(" \\\n-H \"" + k + ": " + v + "\"")
		}
	}
	if len(requestBody) > 0 {
		s.WriteString(" \\\n" + curlData(requestBody, request.Header.Get("Content-Type")))
	}
	s.WriteString("\n```\n\n\n")

	s.WriteString("HTTP request/response example:\n\n```http\n")

	// Request
	s.WriteString(request.Method + " " + request.URL.Path + query + " " + request.Proto + "\n")
	s.WriteString("Host: " + exampleHost + "\n")
	for _, k := range sortedKeys(request.Header) {
		for _, v := range request.Header[k] {
			s.WriteString(k + ": " + v + "\n")
		}
	}
	s.WriteString("\n")
	s.WriteString(formatBody(requestBody, request.Header.Get("Content-Type")) + "\n\n")

	// Response
	s.WriteString(response.Proto + " " + response.Status + "\n")
	for _, k := range sortedKeys(response.Header) {
		if k == "Date" || k == "X-Request-Id" {
			continue
		}
		for _, v := range response.Header[k] {
			s.WriteString(k + ": " + v + "\n")
		}
	}
	s.WriteString("\n")
	s.WriteString(formatBody(response.BodyBytes(), response.Header.Get("Content-Type")) + "\n")

	s.WriteString("```\n\n\n")

	return s.String()
}

func sortedKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatBody indents JSON bodies (also one value per line, as the directory
// returns them), prints text as is and summarizes binary entry values.
func formatBody(body []byte, contentType string) string {

	if len(body) == 0 {
		return ""
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "application/octet-stream" {
		if formatted, ok := formatJSONLines(body); ok {
			return formatted
		}
	}

	if utf8.Valid(body) && isPrintable(string(body)) {
		return string(body)
	}

	return formatBinary(body)
}

func formatJSONLines(body []byte) (string, bool) {

	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		v := jsontext.Value(line)
		if err := v.Indent(jsontext.WithIndent("    ")); err != nil {
			return "", false
		}
		result = append(result, string(v))
	}

	return strings.Join(result, "\n"), true
}

func formatBinary(body []byte) string {
	preview := body
	suffix := ""
	if len(preview) > previewSize {
		preview = preview[:previewSize]
		suffix = " ..."
	}
	return fmt.Sprintf("<%d bytes: %s%s>", len(body), hex.EncodeToString(preview), suffix)
}

func isPrintable(s string) bool {
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}
		if r < ' ' || r == utf8.RuneError || r == 0x7f {
			return false
		}
	}
	return true
}

// curlData renders the request body as a curl flag, binary bodies are read
// from a file in the example
func curlData(body []byte, contentType string) string {
	if !utf8.Valid(body) || !isPrintable(string(body)) {
		return "--data-binary @value.bin"
	}
	formatted := formatBody(body, contentType)
	return "--data-binary '" + strings.ReplaceAll(formatted, "'", `'\''`) + "'"
}

func writeFile(filename, text string) {
	if text == "" {
		return
	}
	filename = strings.Replace(filename, " ", "_", -1)
	examplesPath := os.Getenv("NDMF_API_EXAMPLES")
	if examplesPath != "" {
		p := path.Join(examplesPath, path.Clean(filename))
		fmt.Println("Saving", p)
		err := os.WriteFile(p, []byte(text), 0666)
		if nil != err {
			fmt.Println("Saving err:", err)
		}
	}
}

func md_description(d string) string {
	d = md_crop_tabs(d)
	d = strings.Replace(d, "\n´´´", "\n```", -1)
	return d
}

// md_crop_tabs removes the indentation common to the lines of a raw string
func md_crop_tabs(d string) string {
	lines := strings.Split(d, "\n")

	first := 0
	last := len(lines)
	if len(lines) > 2 {
		first++
		last--
	}

	min_tabs := 99999
	for _, line := range lines[first:last] {
		if strings.TrimSpace(line) != "" {
			c := len(line) - len(strings.TrimLeft(line, "\t"))
			if min_tabs > c {
				min_tabs = c
			}
		}
	}

	prefix := strings.Repeat("\t", min_tabs)
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}

	return strings.Join(lines, "\n")
}
