package extractor

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.NewReaderLabel}

// DecodeSubject decodes MIME encoded-words (=?charset?B|Q?data?=) in a subject.
// A subject without encoded-words, or one that fails to decode, is returned verbatim.
func DecodeSubject(subject string) string {
	if !strings.Contains(subject, "=?") {
		return subject
	}
	decoded, err := wordDecoder.DecodeHeader(subject)
	if err != nil {
		return subject
	}
	return decoded
}

// bodyPart is a decoded leaf of a message.
type bodyPart struct {
	mediaType string
	text      string
}

// decodeEntity decodes a single MIME entity and returns its text leaves in
// document order. Multipart entities are walked recursively.
func decodeEntity(header textproto.MIMEHeader, body io.Reader, depth int) []bodyPart {
	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
		params = map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") && depth < 8 {
		boundary := params["boundary"]
		if boundary == "" {
			return nil
		}
		var parts []bodyPart
		mr := multipart.NewReader(body, boundary)
		for {
			p, err := mr.NextRawPart()
			if err != nil {
				break
			}
			parts = append(parts, decodeEntity(p.Header, p, depth+1)...)
		}
		return parts
	}

	if !strings.HasPrefix(mediaType, "text/") {
		return nil
	}

	data, err := io.ReadAll(body)
	if err != nil && len(data) == 0 {
		return nil
	}
	data = decodeTransfer(header.Get("Content-Transfer-Encoding"), data)
	text := toUTF8(data, params["charset"])
	if mediaType == "text/html" {
		text = htmlToText(text)
	}
	return []bodyPart{{mediaType: mediaType, text: text}}
}

// pickText prefers the first text/plain leaf, then the first text/html leaf.
func pickText(parts []bodyPart) string {
	for _, p := range parts {
		if p.mediaType == "text/plain" {
			return p.text
		}
	}
	for _, p := range parts {
		if p.mediaType == "text/html" {
			return p.text
		}
	}
	return ""
}

// decodeTransfer reverses a Content-Transfer-Encoding. Undecodable payloads are
// returned unchanged.
func decodeTransfer(encoding string, data []byte) []byte {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		compact := strings.Join(strings.Fields(string(data)), "")
		if decoded, err := base64.StdEncoding.DecodeString(compact); err == nil {
			return decoded
		}
		if decoded, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(compact, "=")); err == nil {
			return decoded
		}
		return data
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(data)))
		if err != nil {
			return data
		}
		return decoded
	default:
		return data
	}
}

// toUTF8 converts data from the declared charset to UTF-8 and normalizes it to
// NFC with LF line endings. Without a declared charset, ISO-2022-JP escape
// sequences are detected; anything else is treated as UTF-8.
func toUTF8(data []byte, label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" && bytes.Contains(data, []byte("\x1b$B")) {
		label = "iso-2022-jp"
	}

	var text string
	switch label {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		text = string(data)
	default:
		r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
		if err != nil {
			text = string(data)
			break
		}
		converted, err := io.ReadAll(r)
		if err != nil {
			text = string(data)
			break
		}
		text = string(converted)
	}

	text = strings.ToValidUTF8(text, "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return norm.NFC.String(text)
}

// htmlToText flattens an HTML body into lines of text.
func htmlToText(src string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(src))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "div", "tr", "li", "table":
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "div", "tr", "li", "td":
				b.WriteByte('\n')
			}
		}
	}
}
