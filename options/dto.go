package options

import (
	"net/http"

	"github.com/syssam/modelconnect/opt"
)

// Method is an HTTP method name keying per-method DTO options.
type Method string

// HTTP methods with DTO options.
const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// Methods lists the methods every resolved DTO map contains.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// Preprocessor transforms a field value before it enters or leaves a DTO.
type Preprocessor func(any) (any, error)

// RequestDto configures a field in the request body of one method.
type RequestDto struct {
	Include      opt.Value[bool] // default true.
	Require      opt.Value[bool] // default false.
	Preprocessor Preprocessor    // nil means none.
}

// ResponseDto configures a field in the response body of one method.
type ResponseDto struct {
	Include      opt.Value[bool] // default true.
	Preprocessor Preprocessor
}

// RequestDtos maps methods to request DTO options.
type RequestDtos map[Method]*RequestDto

// ResponseDtos maps methods to response DTO options.
type ResponseDtos map[Method]*ResponseDto

func (d RequestDtos) resolve() {
	for _, m := range Methods {
		if d[m] == nil {
			d[m] = &RequestDto{}
		}
	}
	for _, dto := range d {
		opt.Coalesce(&dto.Include, true)
		opt.Coalesce(&dto.Require, false)
	}
}

func (d ResponseDtos) resolve() {
	for _, m := range Methods {
		if d[m] == nil {
			d[m] = &ResponseDto{}
		}
	}
	for _, dto := range d {
		opt.Coalesce(&dto.Include, true)
	}
}

func (d RequestDtos) clone() RequestDtos {
	if d == nil {
		return nil
	}
	c := make(RequestDtos, len(d))
	for m, dto := range d {
		if dto != nil {
			cp := *dto
			c[m] = &cp
		}
	}
	return c
}

func (d ResponseDtos) clone() ResponseDtos {
	if d == nil {
		return nil
	}
	c := make(ResponseDtos, len(d))
	for m, dto := range d {
		if dto != nil {
			cp := *dto
			c[m] = &cp
		}
	}
	return c
}
