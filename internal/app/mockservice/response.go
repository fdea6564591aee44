package mockservice

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
)

const defaultStatus = http.StatusOK

type response struct {
	status  int
	headers map[string]string
	body    interface{}
}

func loadResponse(definition interface{}) (response, error) {
	r := response{
		status:  defaultStatus,
		headers: map[string]string{},
	}
	if definition == nil {
		return r, nil
	}

	d, ok := definition.(map[string]interface{})
	if !ok {
		return r, errors.New("incorrect format of response")
	}

	if status, ok := d["status"].(float64); ok && status > 0 {
		r.status = int(status)
	}

	if headers, ok := d["headers"].(map[string]interface{}); ok {
		for name, value := range headers {
			if s, ok := stringValue(value); ok {
				r.headers[http.CanonicalHeaderKey(name)] = s
			}
		}
	}

	r.body = reify(d["body"])
	return r, nil
}

func (r response) write(res http.ResponseWriter) error {
	for name, value := range r.headers {
		res.Header().Set(name, value)
	}

	var data []byte
	switch body := r.body.(type) {
	case nil:
	case string:
		data = []byte(body)
	default:
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "unable to serialize response body")
		}
		if res.Header().Get("Content-Type") == "" {
			res.Header().Set("Content-Type", mediaTypeJSON)
		}
	}

	res.Header().Set("Content-Length", strconv.Itoa(len(data)))
	res.WriteHeader(r.status)
	if len(data) == 0 {
		return nil
	}

	written, err := res.Write(data)
	if err != nil {
		return err
	}
	if written != len(data) {
		return io.ErrShortWrite
	}
	return nil
}
