package checksum

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateRecordHash fingerprints one scrape result as
// SHA256(url|branch|address) in hex. Branch and address are trimmed so
// whitespace-only differences between runs map to the same row.
func (g *Generator) GenerateRecordHash(url, branch, address string) string {
	content := fmt.Sprintf("%s|%s|%s", url, strings.TrimSpace(branch), strings.TrimSpace(address))

	hash := sha256.Sum256([]byte(content))

	return fmt.Sprintf("%x", hash)
}
