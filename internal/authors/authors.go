// Package authors parses the --authors file (§6): one TFVC identity per
// line, mapping it to a Git author/committer identity.
package authors

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/techsola/tfvc-migrator/internal/migerr"
	"github.com/techsola/tfvc-migrator/internal/objectstore"
)

// Map is a lookup from TFVC account name to the Git identity it maps to.
type Map map[string]objectstore.Signature

// Parse reads the authors-file grammar `TFVC_NAME = Display Name <email>`
// from r. Blank lines are skipped. A line missing "=" or the "<...>" email
// delimiters fails with a Configuration error (§7: "unmapped authors,
// malformed ... arguments").
func Parse(r io.Reader) (Map, error) {
	m := make(Map)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, migerr.New(migerr.Configuration, fmt.Sprintf("authors file line %d: missing '='", lineNo))
		}
		tfvcName := strings.TrimSpace(line[:eq])
		rest := strings.TrimSpace(line[eq+1:])
		if tfvcName == "" {
			return nil, migerr.New(migerr.Configuration, fmt.Sprintf("authors file line %d: empty TFVC account name", lineNo))
		}

		open := strings.LastIndex(rest, "<")
		close := strings.LastIndex(rest, ">")
		if open < 0 || close < 0 || close < open {
			return nil, migerr.New(migerr.Configuration, fmt.Sprintf("authors file line %d: missing '<email>'", lineNo))
		}
		displayName := strings.TrimSpace(rest[:open])
		email := strings.TrimSpace(rest[open+1 : close])
		if displayName == "" || email == "" {
			return nil, migerr.New(migerr.Configuration, fmt.Sprintf("authors file line %d: empty display name or email", lineNo))
		}

		m[tfvcName] = objectstore.Signature{Name: displayName, Email: email}
	}
	if err := scanner.Err(); err != nil {
		return nil, migerr.Wrap(migerr.TransientIO, err)
	}
	return m, nil
}

// Resolve looks up tfvcName, failing with Configuration if unmapped (§7:
// "unmapped authors").
func (m Map) Resolve(tfvcName string) (objectstore.Signature, error) {
	sig, ok := m[tfvcName]
	if !ok {
		return objectstore.Signature{}, migerr.New(migerr.Configuration, fmt.Sprintf("no author mapping for %q", tfvcName))
	}
	return sig, nil
}
