package ocr

import (
	"errors"

	"github.com/tidwall/gjson"

	"paper-reader/internal/apperr"
)

// ParseFailed is the document text used when a response carries no markdown.
const ParseFailed = "解析失败"

var errInvalidJSON = errors.New("response is not valid JSON")

// ParseResponse returns result.markdown from a pdf_to_markdown payload.
// A well-formed payload without markdown yields ParseFailed rather than an error.
func ParseResponse(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", apperr.E(apperr.KindMalformedResponse, "ocr.parse", errInvalidJSON)
	}
	md := gjson.GetBytes(body, "result.markdown")
	if !md.Exists() || md.Type == gjson.Null {
		return ParseFailed, nil
	}
	return md.String(), nil
}

// providerStatus returns the provider's own code and message, when present.
func providerStatus(body []byte) (int64, string) {
	res := gjson.GetManyBytes(body, "code", "message")
	return res[0].Int(), res[1].String()
}
