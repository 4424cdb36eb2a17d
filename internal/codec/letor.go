// Package codec reads and writes ranking records in the LETOR / SVM-Rank
// text format:
//
//	<label> qid:<group> 1:<v1> 2:<v2> ... [# description]
//
// Feature order is positional. The index text in front of each value is
// ignored on read, so "3:0.1 1:0.2" yields features [0.1, 0.2]; on write
// indices are always emitted as 1..N.
package codec

import (
	"strconv"
	"strings"

	"github.com/gcbaptista/go-letor/internal/errors"
	"github.com/gcbaptista/go-letor/model"
)

const (
	commentMarker = '#'
	groupKey      = "qid:"
)

// Parse parses a single LETOR line into a Record.
func Parse(line string) (model.Record, error) {
	body, description := splitComment(line)

	fields := strings.Fields(body)
	if len(fields) == 0 {
		return model.Record{}, errors.NewFormatError(line, "empty record")
	}

	label, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return model.Record{}, errors.NewFormatError(line, "label is not an unsigned integer")
	}

	if len(fields) < 2 {
		return model.Record{}, errors.NewFormatError(line, "missing group id")
	}
	groupID, err := strconv.ParseUint(valueAfterColon(fields[1]), 10, 64)
	if err != nil {
		return model.Record{}, errors.NewFormatError(line, "group id is not an unsigned integer")
	}

	pairs := fields[2:]
	if len(pairs) == 0 {
		return model.Record{}, errors.NewFormatError(line, "record has no features")
	}

	features := make([]float64, len(pairs))
	for i, pair := range pairs {
		sep := strings.LastIndexByte(pair, ':')
		if sep < 0 {
			return model.Record{}, errors.NewFormatError(line, "feature "+strconv.Itoa(i+1)+" is not an index:value pair")
		}
		v, err := strconv.ParseFloat(pair[sep+1:], 64)
		if err != nil {
			return model.Record{}, errors.NewFormatError(line, "feature "+strconv.Itoa(i+1)+" value is not a number")
		}
		features[i] = v
	}

	return model.Record{
		Label:       label,
		GroupID:     groupID,
		Features:    features,
		Description: description,
	}, nil
}

// Serialize renders a record as a newline-terminated LETOR line.
func Serialize(r model.Record) string {
	return string(AppendRecord(nil, r))
}

// AppendRecord appends the LETOR rendering of r, including the trailing
// newline, to dst and returns the extended buffer.
func AppendRecord(dst []byte, r model.Record) []byte {
	dst = strconv.AppendUint(dst, r.Label, 10)
	dst = append(dst, ' ')
	dst = append(dst, groupKey...)
	dst = strconv.AppendUint(dst, r.GroupID, 10)
	for i, v := range r.Features {
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(i+1), 10)
		dst = append(dst, ':')
		dst = strconv.AppendFloat(dst, v, 'g', -1, 64)
	}
	if desc := canonicalDescription(r.Description); desc != "" {
		dst = append(dst, ' ', commentMarker, ' ')
		dst = append(dst, desc...)
	}
	return append(dst, '\n')
}

// IsSkippable reports whether a line carries no record: blank,
// whitespace-only, or a comment-only line.
func IsSkippable(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || trimmed[0] == commentMarker
}

func splitComment(line string) (body, description string) {
	idx := strings.IndexByte(line, commentMarker)
	if idx < 0 {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
}

// valueAfterColon returns the text after the last ':' or the whole token
// when it has none, so both "qid:7" and a bare "7" work.
func valueAfterColon(token string) string {
	if i := strings.LastIndexByte(token, ':'); i >= 0 {
		return token[i+1:]
	}
	return token
}

// canonicalDescription returns the description as Parse would read it back:
// trimmed and on a single line.
func canonicalDescription(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
