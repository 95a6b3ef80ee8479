// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// BlockProgress displays a progress bar over the output blocks of a block multiplication.
//
// Its Update method can be given to blockmm.Multiplier.OnProgress, and it is safe for
// concurrent use.
type BlockProgress struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	out     io.Writer
	termenv *termenv.Output
	done    int
}

// NewBlockProgress creates a progress bar for total output blocks, written to out.
func NewBlockProgress(out io.Writer, description string, total int) *BlockProgress {
	p := &BlockProgress{out: out, termenv: termenv.NewOutput(out)}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("blocks"),
		progressbar.OptionSetTheme(ProgressbarStyle),
	)
	p.termenv.HideCursor()
	return p
}

// Update moves the progress bar to done blocks. Updates that arrive out of order are ignored.
func (p *BlockProgress) Update(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if total != p.bar.GetMax() {
		p.bar.ChangeMax(total)
	}
	if done <= p.done {
		return
	}
	_ = p.bar.Add(done - p.done)
	p.done = done
}

// Done returns the number of blocks reported so far.
func (p *BlockProgress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Finish completes the progress bar and restores the cursor.
func (p *BlockProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.bar.Finish()
	p.termenv.ShowCursor()
	_, _ = fmt.Fprintln(p.out)
}
