package stepcache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// DomainEntry is the domain prefix of entry digests.
// Version suffix enables future algorithm migration.
const DomainEntry = "stepwise/stepcache/v1"

// Digest computes the integrity digest of a cache entry.
//
// Format: SHA256(domain + 0x00 + canonical JSON). The canonical form writes
// object keys in sorted order, NFC-normalizes strings and does not escape
// HTML, so equal entries digest equally across platforms.
func Digest(caseID string, recs []EntryRecord) (string, error) {
	canonical, err := canonicalEntry(caseID, recs)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(DomainEntry))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalEntry writes {"case_id":...,"steps":[{"critical_ms":..,"id":..,"warning_ms":..}]}.
// Pending ids are written as null.
func canonicalEntry(caseID string, recs []EntryRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"case_id":`)
	if err := writeCanonicalString(&buf, caseID); err != nil {
		return nil, err
	}
	buf.WriteString(`,"steps":[`)
	for i, r := range recs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"critical_ms":`)
		buf.WriteString(strconv.FormatInt(r.CriticalMs, 10))
		buf.WriteString(`,"id":`)
		if name, ok := r.ID.Name(); ok {
			if err := writeCanonicalString(&buf, name); err != nil {
				return nil, err
			}
		} else {
			buf.WriteString("null")
		}
		buf.WriteString(`,"warning_ms":`)
		buf.WriteString(strconv.FormatInt(r.WarningMs, 10))
		buf.WriteByte('}')
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds trailing newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
