package contract

import (
	"github.com/pact-foundation/pact-go/dsl"
)

// RequestDefaults holds values applied to every request built after it has
// been registered with a Builder. Values set explicitly on a request win.
type RequestDefaults struct {
	method  string
	path    dsl.Matcher
	headers dsl.MapMatcher
	body    interface{}
}

func (d *RequestDefaults) Method(method string) *RequestDefaults {
	d.method = method
	return d
}

func (d *RequestDefaults) Path(path dsl.Matcher) *RequestDefaults {
	d.path = path
	return d
}

func (d *RequestDefaults) Header(name string, value dsl.Matcher) *RequestDefaults {
	if d.headers == nil {
		d.headers = dsl.MapMatcher{}
	}
	d.headers[name] = value
	return d
}

func (d *RequestDefaults) Body(body interface{}) *RequestDefaults {
	d.body = body
	return d
}

func (d *RequestDefaults) apply(request dsl.Request) dsl.Request {
	if d == nil {
		return request
	}
	if request.Method == "" {
		request.Method = d.method
	}
	if request.Path == nil {
		request.Path = d.path
	}
	if request.Body == nil {
		request.Body = d.body
	}
	request.Headers = mergeHeaders(d.headers, request.Headers)
	return request
}

// ResponseDefaults holds values applied to every response built after it has
// been registered with a Builder. Values set explicitly on a response win.
type ResponseDefaults struct {
	status  int
	headers dsl.MapMatcher
	body    interface{}
}

func (d *ResponseDefaults) Status(status int) *ResponseDefaults {
	d.status = status
	return d
}

func (d *ResponseDefaults) Header(name string, value dsl.Matcher) *ResponseDefaults {
	if d.headers == nil {
		d.headers = dsl.MapMatcher{}
	}
	d.headers[name] = value
	return d
}

func (d *ResponseDefaults) Body(body interface{}) *ResponseDefaults {
	d.body = body
	return d
}

func (d *ResponseDefaults) apply(response dsl.Response) dsl.Response {
	if d == nil {
		return response
	}
	if response.Status == 0 {
		response.Status = d.status
	}
	if response.Body == nil {
		response.Body = d.body
	}
	response.Headers = mergeHeaders(d.headers, response.Headers)
	return response
}

func mergeHeaders(defaults, explicit dsl.MapMatcher) dsl.MapMatcher {
	if len(defaults) == 0 {
		return explicit
	}
	merged := dsl.MapMatcher{}
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range explicit {
		merged[k] = v
	}
	return merged
}
