package recognition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Format selects the response schema.
type Format string

const (
	// FormatJSON expects {"token": "...", "confidence": 0.9}.
	FormatJSON Format = "json"

	// FormatRoboflow expects Roboflow classification or detection output:
	// {"top": "A", "confidence": 0.9} or {"predictions": [{"class": "A", "confidence": 0.9}]}.
	FormatRoboflow Format = "roboflow"

	// FormatText treats the whole body as the token. A JSON string body is
	// unquoted first.
	FormatText Format = "text"
)

// ParseFormat parses a format name. Empty selects FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatRoboflow, FormatText:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

type tokenResponse struct {
	Token      *string  `json:"token"`
	Confidence *float64 `json:"confidence"`
}

type roboflowResponse struct {
	Top         string   `json:"top"`
	Confidence  *float64 `json:"confidence"`
	Predictions []struct {
		Class      string  `json:"class"`
		Confidence float64 `json:"confidence"`
	} `json:"predictions"`
}

// Decode parses body according to format and applies the confidence
// threshold. A threshold of zero accepts any score.
func Decode(format Format, body []byte, minConfidence float64) (*Result, error) {
	var (
		res *Result
		err error
	)

	switch format {
	case FormatJSON, "":
		res, err = decodeToken(body)
	case FormatRoboflow:
		res, err = decodeRoboflow(body)
	case FormatText:
		res, err = decodeText(body)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if minConfidence > 0 && res.HasConfidence && res.Confidence < minConfidence {
		return nil, fmt.Errorf("%w: %s scored %.2f, need %.2f",
			ErrLowConfidence, res.Token, res.Confidence, minConfidence)
	}
	return res, nil
}

func decodeToken(body []byte) (*Result, error) {
	var resp tokenResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if resp.Token == nil {
		return nil, fmt.Errorf("%w: missing token", ErrInvalidResponse)
	}
	token := strings.TrimSpace(*resp.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidResponse)
	}

	res := &Result{Token: token}
	if resp.Confidence != nil {
		res.Confidence = *resp.Confidence
		res.HasConfidence = true
	}
	return res, nil
}

func decodeRoboflow(body []byte) (*Result, error) {
	var resp roboflowResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if top := strings.TrimSpace(resp.Top); top != "" {
		res := &Result{Token: top}
		if resp.Confidence != nil {
			res.Confidence = *resp.Confidence
			res.HasConfidence = true
		}
		return res, nil
	}

	best := -1
	for i, p := range resp.Predictions {
		if strings.TrimSpace(p.Class) == "" {
			continue
		}
		if best < 0 || p.Confidence > resp.Predictions[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		return nil, ErrNoPrediction
	}

	p := resp.Predictions[best]
	return &Result{
		Token:         strings.TrimSpace(p.Class),
		Confidence:    p.Confidence,
		HasConfidence: true,
	}, nil
}

func decodeText(body []byte) (*Result, error) {
	text := strings.TrimSpace(string(body))

	var quoted string
	if strings.HasPrefix(text, `"`) && json.Unmarshal([]byte(text), &quoted) == nil {
		text = strings.TrimSpace(quoted)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidResponse)
	}
	return &Result{Token: text}, nil
}
