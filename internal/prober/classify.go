package prober

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dev-fuadhasan/openapi/internal/models"
)

func (p *Prober) classify(rawURL string, status int, contentType string, body []byte, total int64) models.EndpointResult {
	result := models.EndpointResult{
		URL:           rawURL,
		Status:        status,
		Open:          status == http.StatusOK,
		ContentType:   contentType,
		ContentLength: total,
	}

	mediaType := mediaTypeOf(contentType)
	if mediaType == "" && len(body) > 0 {
		mediaType = mediaTypeOf(http.DetectContentType(body))
	}

	switch {
	case strings.Contains(mediaType, "json"):
		result.Sample, result.DataType, result.Structure = p.summarizeJSON(body, total)
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		result.DataType = models.DataKindHTML
		result.Sample = p.summarizeHTML(body, total)
	case strings.Contains(mediaType, "xml"):
		result.DataType = models.DataKindXML
		result.Sample = truncateSample(bodyText(body), p.cfg.SampleChars, total)
	case strings.HasPrefix(mediaType, "text/") || strings.Contains(mediaType, "javascript") || mediaType == "":
		result.DataType = models.DataKindText
		result.Sample = truncateSample(bodyText(body), p.cfg.SampleChars, total)
	default:
		result.DataType = contentType
		if result.DataType == "" {
			result.DataType = mediaType
		}
		result.Sample = truncateSample(bodyText(body), p.cfg.SampleChars, total)
	}

	return result
}

// summarizeJSON pretty-prints a valid document and records its top-level
// shape. Invalid documents degrade to a raw sample.
func (p *Prober) summarizeJSON(body []byte, total int64) (string, string, *models.StructureSummary) {
	if !json.Valid(body) {
		return truncateSample(bodyText(body), p.cfg.SampleChars, total), models.DataKindJSONLike, nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		return truncateSample(bodyText(body), p.cfg.SampleChars, total), models.DataKindJSONLike, nil
	}

	structure, err := topLevelStructure(body, p.cfg.StructureKeys)
	if err != nil {
		return truncateSample(bodyText(body), p.cfg.SampleChars, total), models.DataKindJSONLike, nil
	}

	return truncateSample(pretty.String(), p.cfg.SampleChars, total), models.DataKindJSON, structure
}

// topLevelStructure walks the first level of a document in order. Scalars
// have no structure.
func topLevelStructure(body []byte, maxKeys int) (*models.StructureSummary, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, nil
	}

	summary := &models.StructureSummary{}
	switch delim {
	case '{':
		summary.Keys = []string{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			if len(summary.Keys) < maxKeys {
				summary.Keys = append(summary.Keys, key)
			}
			summary.KeyCount++
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
	case '[':
		for dec.More() {
			summary.ItemCount++
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
	}
	return summary, nil
}

func skipValue(dec *json.Decoder) error {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (p *Prober) summarizeHTML(body []byte, total int64) string {
	text := bodyText(body)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
		if title != "" {
			return "Title: " + title + "\n\n" + truncateSample(text, p.cfg.HTMLSampleChars, total)
		}
	}
	return truncateSample(text, p.cfg.SampleChars, total)
}

// truncateSample keeps the first limit characters and appends a marker with
// the untruncated byte length
func truncateSample(text string, limit int, total int64) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + fmt.Sprintf("... [truncated, %d bytes total]", total)
}

func bodyText(body []byte) string {
	return strings.ToValidUTF8(string(body), "")
}

func mediaTypeOf(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
