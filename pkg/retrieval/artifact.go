package retrieval

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Artifact format: the original service persists the class-embedding
// matrix and id vector as two numpy .npy files. This implementation
// carries the same two semantic fields — an (N, D) float32 matrix and an
// aligned length-N id list — in a plain Go-native binary layout instead
// of reimplementing the .npy container format:
//
//   embeddings file: uint32 N (little-endian), uint32 D (little-endian),
//     then N*D float32 values (little-endian), row-major.
//   ids file: one class id per line, UTF-8 text, line i is row i's id.
//
// Load reads both and installs them on r; a reload re-reads from disk and
// replaces the prior matrix atomically from the caller's point of view
// (the Retriever is swapped as a whole by the engine, not mutated
// in-place mid-read).
func (r *Retriever) Load(embeddingsPath, idsPath string) error {
	mat, dim, err := readMatrix(embeddingsPath)
	if err != nil {
		return fmt.Errorf("retrieval: embeddings: %w", err)
	}
	ids, err := readIDs(idsPath)
	if err != nil {
		return fmt.Errorf("retrieval: ids: %w", err)
	}
	if len(ids) != len(mat) {
		return fmt.Errorf("retrieval: %d ids but %d embedding rows", len(ids), len(mat))
	}

	r.mat = mat
	r.ids = ids
	r.dim = dim
	return nil
}

func readMatrix(path string) ([][]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var n, d uint32
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, 0, fmt.Errorf("read row count: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &d); err != nil {
		return nil, 0, fmt.Errorf("read dimension: %w", err)
	}

	mat := make([][]float32, n)
	for i := range mat {
		row := make([]float32, d)
		if err := binary.Read(f, binary.LittleEndian, &row); err != nil {
			return nil, 0, fmt.Errorf("read row %d: %w", i, err)
		}
		mat[i] = row
	}
	return mat, int(d), nil
}

func readIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ids = append(ids, scanner.Text())
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return ids, nil
}

// WriteArtifacts persists mat/ids in the layout Load expects. Exercised
// by tests and by any offline index-building tool; the engine itself only
// reads artifacts.
func WriteArtifacts(embeddingsPath, idsPath string, mat [][]float32, ids []string) error {
	if len(mat) != len(ids) {
		return fmt.Errorf("retrieval: %d rows but %d ids", len(mat), len(ids))
	}
	dim := 0
	if len(mat) > 0 {
		dim = len(mat[0])
	}

	ef, err := os.Create(embeddingsPath)
	if err != nil {
		return err
	}
	defer ef.Close()
	if err := binary.Write(ef, binary.LittleEndian, uint32(len(mat))); err != nil {
		return err
	}
	if err := binary.Write(ef, binary.LittleEndian, uint32(dim)); err != nil {
		return err
	}
	for _, row := range mat {
		if err := binary.Write(ef, binary.LittleEndian, row); err != nil {
			return err
		}
	}

	idf, err := os.Create(idsPath)
	if err != nil {
		return err
	}
	defer idf.Close()
	w := bufio.NewWriter(idf)
	for _, id := range ids {
		if _, err := w.WriteString(id + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}
