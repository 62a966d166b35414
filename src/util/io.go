package util

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Writer buffers output from goroutines in a strings.Builder.
// When the Flush or Close method is called the buffer is emptied and sent to
// the assigned output writer through channel c.
type Writer struct {
	sb strings.Builder
	c  chan string
}

// ---------------------
// ----- Constants -----
// ---------------------

var wc chan string     // Write channel used for receiving data from worker goroutines.
var cc chan error      // Close channel used by main goroutine to signal to end write operations.
var wg *sync.WaitGroup // Used for synchronising when I/O finished writing to output.

// ---------------------
// ----- Functions -----
// ---------------------

// Write writes a format string to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// WriteString writes a plain string to the Writer's buffer.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// WriteValue writes the printed form of a runtime result, followed by a newline. Used by the REPL
// and by --load/-X to report the value of each top-level form.
func (w *Writer) WriteValue(v fmt.Stringer) {
	w.sb.WriteString(v.String())
	w.sb.WriteByte('\n')
}

// Flush empties the Writer's buffer and sends the buffer data to the
// designated output writer over the Writer's channel.
func (w *Writer) Flush() {
	w.c <- w.sb.String()
	w.sb = strings.Builder{}
}

// Close flushes the Writer's buffer and then closes the Writer's channel.
func (w *Writer) Close() {
	w.Flush()
	w.c = nil
	wg.Done()
}

// NewWriter returns a new Writer to be used by worker goroutines to write strings concurrently to
// the output buffer. Must not be called before the main goroutine has called ListenWrite.
func NewWriter() Writer {
	wg.Add(1)
	return Writer{
		sb: strings.Builder{},
		c:  wc,
	}
}

// ReadSource reads source code from the file named by opt.Load, or returns opt.Inline verbatim
// when no file path was given.
func ReadSource(opt Options) (string, error) {
	if len(opt.Load) > 0 {
		b, err := os.ReadFile(opt.Load)
		return string(b), err
	}
	return opt.Inline, nil
}

// ListenWrite listens for worker goroutine outputs. The received data is written to either file
// if File pointer f is not nil or stdout if File pointer f is nil. The goroutine loops until
// a termination signal is sent using the Close function.
func ListenWrite(opt Options, f *os.File, wgg *sync.WaitGroup) {
	wg = wgg
	if opt.Threads > 1 {
		wc = make(chan string, opt.Threads+1)
	} else {
		wc = make(chan string, 1)
	}
	cc = make(chan error, 1) // Make buffered to catch Close before listener is invoked.
	var w *bufio.Writer
	if f != nil {
		w = bufio.NewWriter(f)
	} else {
		w = bufio.NewWriter(os.Stdout)
	}

	go func(wc chan string, cc chan error) {
		defer close(wc)
		defer close(cc)
		for {
			select {
			case s := <-wc:
				if _, err := w.WriteString(s); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
				if err := w.Flush(); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			case <-cc:
				return
			}
		}
	}(wc, cc)
}

// Close sends the termination signal to the writer listener.
func Close() {
	cc <- nil
}
