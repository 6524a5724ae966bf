package portraitserver

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"
)

const portraitsDir = "portraits"

// StoredPortrait describes the single live portrait of a character.
type StoredPortrait struct {
	CharacterID string
	Filename    string
	PublicPath  string
	Size        int64
}

// PortraitStore persists at most one current portrait per character.
// Save writes the new portrait and then removes every older one; cleanup
// failures are logged, not returned.
type PortraitStore interface {
	Save(ctx context.Context, characterID string, data []byte) (StoredPortrait, error)
	Open(ctx context.Context, characterID, filename string) (io.ReadCloser, int64, error)
}

func portraitFilename(t time.Time) string {
	return fmt.Sprintf("portrait-%d.jpg", t.Unix())
}

func isPortraitFile(name string) bool {
	ok, _ := path.Match("portrait-*.jpg", name)
	return ok
}

// publicPath is the URL path a stored portrait is served under. An empty
// characterID yields a double slash, as the stored layout does.
func publicPath(characterID, filename string) string {
	return "/uploads/" + portraitsDir + "/" + characterID + "/" + filename
}
