package portraitserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
)

var dataURIPrefix = regexp.MustCompile(`^data:image/(jpeg|jpg|png|gif|webp);base64,`)

// Field names match exactly. encoding/json folds case on struct tags.
const (
	fieldImage         = "image"
	fieldCharacterID   = "characterId"
	fieldCharacterName = "characterName"
)

// portraitUpload is a validated upload: sanitized id and raw image bytes.
type portraitUpload struct {
	CharacterID   string
	CharacterName string
	ImageType     string
	ImageData     []byte
}

func parseUploadRequest(body io.Reader) (*portraitUpload, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequest(msgBodyTooLarge, err)
		}
		return nil, badRequest(msgMissingFields, err)
	}

	// Unmarshal rejects trailing data after the object.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, badRequest(msgMissingFields, err)
	}

	image, ok := stringField(fields[fieldImage])
	if !ok {
		return nil, badRequest(msgMissingFields, nil)
	}
	characterID, ok := idField(fields[fieldCharacterID])
	if !ok {
		return nil, badRequest(msgMissingFields, nil)
	}

	imageType, data, err := decodeDataURI(image)
	if err != nil {
		return nil, err
	}

	name := "character"
	if v, ok := stringField(fields[fieldCharacterName]); ok {
		name = v
	}

	return &portraitUpload{
		CharacterID:   sanitizeCharacterID(characterID),
		CharacterName: name,
		ImageType:     imageType,
		ImageData:     data,
	}, nil
}

// absent reports a missing key or an explicit null.
func absent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func stringField(raw json.RawMessage) (string, bool) {
	var v string
	if absent(raw) || json.Unmarshal(raw, &v) != nil {
		return "", false
	}
	return v, true
}

// idField accepts a string or a JSON number. A number keeps its literal
// text, so 123 becomes "123" and 1.5 becomes "15" after sanitizing.
func idField(raw json.RawMessage) (string, bool) {
	if v, ok := stringField(raw); ok {
		return v, true
	}
	var n json.Number
	if absent(raw) || json.Unmarshal(raw, &n) != nil {
		return "", false
	}
	return n.String(), true
}

// sanitizeCharacterID keeps only [A-Za-z0-9_-]. The result may be empty.
func sanitizeCharacterID(id string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return -1
	}, id)
}

// decodeDataURI returns the declared image subtype and the decoded payload.
func decodeDataURI(uri string) (string, []byte, error) {
	m := dataURIPrefix.FindStringSubmatch(uri)
	if m == nil {
		return "", nil, badRequest(msgInvalidFormat, nil)
	}
	payload := uri[len(m[0]):]

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(payload)
		if rawErr != nil {
			return "", nil, badRequest(msgBase64Decode, err)
		}
	}
	return m[1], data, nil
}
