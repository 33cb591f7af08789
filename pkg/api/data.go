package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type Parameter map[string]string

func (p Parameter) Encode() string {
	var parameters []string
	for key, value := range p {
		parameters = append(parameters, key+"="+PercentEncode(value))
	}
	sort.Strings(parameters)
	return strings.Join(parameters, "&")
}

type JSON map[string]any

// Decode copies the fields of m into out, matching the json tags of out. Numbers are converted
// to strings when needed, since some providers send numeric ids.
func (m JSON) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(map[string]any(m))
}

func bytesToJSON(body []byte) (JSON, error) {
	result := JSON{}
	err := json.Unmarshal(body, &result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

type Response struct {
	Code    int
	Status  string
	Header  http.Header
	Body    any
	RawBody []byte
}

func (r *Response) OK() bool {
	return r.Code >= 200 && r.Code < 300
}

func (r *Response) JSON() (JSON, error) {
	if j, ok := r.Body.(JSON); ok {
		return j, nil
	}

	return nil, errors.New("response body is not a json object")
}
