package telemetry

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ManifestClaims summarizes a completed run so the external ML
// scheduler can verify provenance of the CSV file before ingesting
// it, without the scheduler needing its own side channel to this
// process.
type ManifestClaims struct {
	jwt.RegisteredClaims
	RunID     string `json:"run_id"`
	Ticks     int    `json:"ticks"`
	Rows      int    `json:"rows"`
	Jobs      int    `json:"jobs"`
	CSVPath   string `json:"csv_path"`
	CSVSHA256 string `json:"csv_sha256"`
}

// WriteManifest hashes csvPath, signs a ManifestClaims with a random
// per-run HS256 key (or the key read from keyFile if non-empty), and
// writes the resulting JWT to manifestPath.
func WriteManifest(manifestPath, csvPath, runID string, ticks, rows, jobs int, keyFile string) error {
	sum, err := sha256File(csvPath)
	if err != nil {
		return fmt.Errorf("telemetry: hash csv for manifest: %w", err)
	}

	key, err := manifestKey(keyFile)
	if err != nil {
		return fmt.Errorf("telemetry: manifest key: %w", err)
	}

	claims := ManifestClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		RunID:     runID,
		Ticks:     ticks,
		Rows:      rows,
		Jobs:      jobs,
		CSVPath:   csvPath,
		CSVSHA256: sum,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return fmt.Errorf("telemetry: sign manifest: %w", err)
	}

	return os.WriteFile(manifestPath, []byte(signed), 0o644)
}

func manifestKey(keyFile string) ([]byte, error) {
	if keyFile != "" {
		return os.ReadFile(keyFile)
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
