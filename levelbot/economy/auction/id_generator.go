package auction

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"sync"
)

const (
	idLength     = 4
	idMaxRetries = 10
)

// idGenerator hands out short base32 auction ids. Ids stay human-typeable
// so bidders can reference them in commands.
type idGenerator struct {
	used sync.Map
}

func (g *idGenerator) next() (string, error) {
	for i := 0; i < idMaxRetries; i++ {
		bytes := make([]byte, 3)
		if _, err := rand.Read(bytes); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}

		id := strings.ToUpper(base32.StdEncoding.EncodeToString(bytes)[:idLength])
		if _, exists := g.used.LoadOrStore(id, true); !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique auction id after %d attempts", idMaxRetries)
}

func (g *idGenerator) release(id string) {
	g.used.Delete(id)
}

func (g *idGenerator) reserve(id string) {
	g.used.Store(id, true)
}
