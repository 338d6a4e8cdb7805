package commit

import (
	"io"
	"strconv"

	"github.com/TFMV/icesnap/internal/avro"
	"github.com/google/uuid"
)

// newCommitUUID mints a random UUID string. The driver uses it as the
// commit UUID in every manifest-list filename of one Commit call, and
// as the table UUID when updated metadata has none; manifest filenames
// carry the producer's own commit UUID instead.
func newCommitUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func avroManifestListEncoder(w io.Writer) (*avro.ManifestListEncoder, error) {
	return avro.NewManifestListEncoder(w)
}

func parseOrZero(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
