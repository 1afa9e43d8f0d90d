package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
)

const maxPayloadBytes = 1 << 20

// DecodePayload decodes a JSON request body into dest.
func DecodePayload(r *http.Request, dest any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return errors.New("unsupported content type")
		}
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes))
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	// ensure there's no extra data
	if dec.More() {
		return errors.New("extra data in request body")
	}
	return nil
}
