package pkg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// DefaultKeysFile is read when no path is configured.
	DefaultKeysFile = "pvkey.txt"

	// MaxLineSize bounds a candidate line. A key is 66 characters with its
	// prefix; longer lines are dropped unread, whitespace included.
	MaxLineSize = 4 << 10
)

// ReadPrivateKeys returns the candidate keys in r, one per line, trimmed.
// Blank lines, lines starting with '#' and lines longer than MaxLineSize
// are dropped.
func ReadPrivateKeys(r io.Reader) ([]string, error) {
	reader := bufio.NewReaderSize(r, MaxLineSize)

	var keys []string
	var line []byte
	oversized := false
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading private keys: %w", err)
		}

		if !oversized {
			line = append(line, chunk...)
			if len(line) > MaxLineSize {
				oversized = true
			}
		}
		if isPrefix {
			continue
		}

		if !oversized {
			key := strings.TrimSpace(string(line))
			if key != "" && !strings.HasPrefix(key, "#") {
				keys = append(keys, key)
			}
		}
		line = line[:0]
		oversized = false
	}

	return keys, nil
}

// ReadPrivateKeysFromFile reads candidate keys from the file at path.
func ReadPrivateKeysFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keys file %s: %w", path, err)
	}
	defer file.Close()

	keys, err := ReadPrivateKeys(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return keys, nil
}
