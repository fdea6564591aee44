package mockservice

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// requestDocument is the view of a received request that constraints are
// evaluated against with json paths such as $["body"]["name"].
type requestDocument map[string]interface{}

var supportedMediaTypes = map[string]func([]byte, *url.URL) (requestDocument, error){
	mediaTypeJSON: ParseJSONRequest,
	mediaTypeText: ParsePlainTextRequest,
}

func newRequestDocument(req *http.Request) (requestDocument, error) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read request body")
	}

	mediaType, err := parseMediaTypeHeader(req.Header)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse Content-Type header")
	}

	parse, ok := supportedMediaTypes[mediaType]
	if !ok {
		log.Infof("unsupported media type %s - treating request body as plain text", mediaType)
		parse = ParsePlainTextRequest
	}

	request, err := parse(data, req.URL)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]interface{}, len(req.Header))
	for name, values := range req.Header {
		if len(values) > 0 {
			headers[http.CanonicalHeaderKey(name)] = values[len(values)-1]
		}
	}
	request["headers"] = headers
	request["method"] = req.Method
	return request, nil
}

func ParseJSONRequest(data []byte, url *url.URL) (requestDocument, error) {
	var body interface{} = map[string]interface{}{}
	if len(data) > 0 {
		// the body may be an object or an array
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, errors.Wrap(err, "unable to parse request body")
		}
	}

	return map[string]interface{}{
		"path":  url.Path,
		"body":  body,
		"query": parseQueryValues(url),
	}, nil
}

func ParsePlainTextRequest(data []byte, url *url.URL) (requestDocument, error) {
	return map[string]interface{}{
		"path":  url.Path,
		"body":  string(data),
		"query": parseQueryValues(url),
	}, nil
}

func parseQueryValues(url *url.URL) map[string]interface{} {
	queryValues := make(map[string]interface{})
	for q, v := range url.Query() {
		if len(v) > 0 {
			queryValues[q] = v[0]
		}
	}
	return queryValues
}

func parseMediaTypeHeader(header http.Header) (string, error) {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return mediaTypeText, nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", err
	}
	return mediaType, nil
}
