package sampling

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Collapsed text format: one sample per line, the stack joined by semicolons
// root-first, a space, then the sample timestamp in seconds.
//
//	main;my_fn 9.2

// Decode reads samples from the collapsed text format. Blank lines are
// skipped.
func Decode(r io.Reader) ([]Sample, error) {
	samples := make([]Sample, 0)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		idx := strings.LastIndexByte(line, ' ')
		if idx == -1 {
			return nil, errors.New("collapsed: malformed input")
		}

		ts, err := strconv.ParseFloat(line[idx+1:], 64)
		if err != nil {
			return nil, fmt.Errorf("collapsed: malformed input: %w", err)
		}

		samples = append(samples, Sample{
			TimestampS: ts,
			Stack:      strings.Split(line[:idx], ";"),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("collapsed: reading input: %w", err)
	}

	return samples, nil
}

// Encode writes samples in the collapsed text format.
func Encode(samples []Sample, w io.Writer) error {
	for _, sample := range samples {
		stack := strings.Join(sample.Stack, ";")

		_, err := fmt.Fprintf(w, "%s %s\n",
			stack, strconv.FormatFloat(sample.TimestampS, 'f', -1, 64))
		if err != nil {
			return err
		}
	}

	return nil
}

// Unmarshal decodes samples from a byte slice.
func Unmarshal(buf []byte) ([]Sample, error) {
	return Decode(bytes.NewBuffer(buf))
}

// Marshal encodes samples into a byte slice.
func Marshal(samples []Sample) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := Encode(samples, buf)

	return buf.Bytes(), err
}
