// Package bunchsel decides which bunch index a beam tracks when the study
// does not pin one down. The decision is a pluggable policy so that the
// configuration-building code never performs terminal I/O itself.
package bunchsel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vk/scangridgo/internal/fillsch"
)

// Policy resolves a bunch index for one beam. worst is the precomputed bunch
// with the most long-range interactions, offered as the default choice.
type Policy interface {
	Select(ctx context.Context, beam fillsch.Beam, worst int) (int, error)
}

// Explicit always returns a fixed bunch index.
type Explicit struct {
	Index int
}

func (p Explicit) Select(ctx context.Context, beam fillsch.Beam, worst int) (int, error) {
	return p.Index, nil
}

// PreferWorst adopts the worst bunch without asking.
type PreferWorst struct{}

func (PreferWorst) Select(ctx context.Context, beam fillsch.Beam, worst int) (int, error) {
	return worst, nil
}

// Interactive asks the user whether to adopt the worst bunch; on refusal it
// asks for an explicit index. Invalid input re-prompts rather than failing:
// this path only gates a convenience default.
type Interactive struct {
	In  io.Reader
	Out io.Writer
}

func (p Interactive) Select(ctx context.Context, beam fillsch.Beam, worst int) (int, error) {
	scanner := bufio.NewScanner(p.In)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		fmt.Fprintf(p.Out,
			"The bunch number for %s has not been provided. Do you want to use the bunch "+
				"with the largest number of long-range interactions? It is bunch number %d (y/n): ",
			beam, worst)

		answer, err := readLine(scanner)
		if err != nil {
			return 0, err
		}
		switch strings.TrimSpace(answer) {
		case "y":
			return worst, nil
		case "n":
			return p.askIndex(scanner, beam)
		}
		// Anything else: ask again.
	}
}

func (p Interactive) askIndex(scanner *bufio.Scanner, beam fillsch.Beam) (int, error) {
	for {
		fmt.Fprintf(p.Out, "Please enter the bunch number for %s: ", beam)
		answer, err := readLine(scanner)
		if err != nil {
			return 0, err
		}
		idx, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil || idx < 0 || idx >= fillsch.Slots {
			fmt.Fprintf(p.Out, "Not a valid bunch number: %q\n", strings.TrimSpace(answer))
			continue
		}
		return idx, nil
	}
}

func readLine(scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return scanner.Text(), nil
}
