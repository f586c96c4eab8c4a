package horoscope

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danrleybayoshi/horoscopo/internal/router"
)

// genericBody is the minimal {"sign","text"} shape.
type genericBody struct {
	Sign string `json:"sign"`
	Text string `json:"text"`
}

// dataBody is the {"data":{"horoscope": ...}} shape served by the
// Vercel-hosted horoscope API.
type dataBody struct {
	Data struct {
		Horoscope string `json:"horoscope"`
		Date      string `json:"date"`
	} `json:"data"`
}

// astroPredictBody is the AstroPredict Daily Horoscopes shape.
type astroPredictBody struct {
	Horoscope string `json:"horoscope"`
	Zodiac    string `json:"zodiac"`
	Language  string `json:"language"`
	Type      string `json:"type"`
}

// decodeReading parses body according to format. sign is the requested
// token and is used when the provider does not echo it back. A body that
// parses but carries no text is treated as undecodable.
func decodeReading(format string, body []byte, sign string) (*Reading, error) {
	switch format {
	case router.FormatGeneric:
		return decodeGeneric(body, sign)
	case router.FormatData:
		return decodeData(body, sign)
	case router.FormatAstroPredict:
		return decodeAstroPredict(body, sign)
	case router.FormatAuto, "":
		for _, dec := range []func([]byte, string) (*Reading, error){decodeGeneric, decodeData, decodeAstroPredict} {
			if r, err := dec(body, sign); err == nil {
				return r, nil
			}
		}
		return nil, fmt.Errorf("body matches no known horoscope format")
	default:
		return nil, fmt.Errorf("unknown response format %q", format)
	}
}

func decodeGeneric(body []byte, sign string) (*Reading, error) {
	var b genericBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("decoding generic body: %w", err)
	}
	return newReading(b.Sign, b.Text, sign, "")
}

func decodeData(body []byte, sign string) (*Reading, error) {
	var b dataBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("decoding data body: %w", err)
	}
	return newReading("", b.Data.Horoscope, sign, "")
}

func decodeAstroPredict(body []byte, sign string) (*Reading, error) {
	var b astroPredictBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("decoding astropredict body: %w", err)
	}
	return newReading(b.Zodiac, b.Horoscope, sign, b.Language)
}

func newReading(echoedSign, text, requested, language string) (*Reading, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("response has no horoscope text")
	}
	label := strings.ToLower(strings.TrimSpace(echoedSign))
	if label == "" {
		label = requested
	}
	return &Reading{Sign: label, Text: text, Language: language}, nil
}
