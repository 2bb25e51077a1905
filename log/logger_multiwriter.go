package log

import (
	"errors"
	"fmt"
	"io"
	"slices"
)

// Add registers an output. Registering the same writer twice is an error
func (mw *multiWriter) Add(w io.Writer) error {
	if slices.Contains(mw.writers, w) {
		return errWriterAlreadyLoaded
	}
	mw.writers = append(mw.writers, w)
	return nil
}

// Remove drops a registered output
func (mw *multiWriter) Remove(w io.Writer) error {
	i := slices.Index(mw.writers, w)
	if i == -1 {
		return errWriterNotFound
	}
	mw.writers = slices.Delete(mw.writers, i, i+1)
	return nil
}

// Write sends p to every output. A failing output does not stop the others,
// all failures are returned together
func (mw *multiWriter) Write(p []byte) (int, error) {
	var errs error
	for _, w := range mw.writers {
		n, err := w.Write(p)
		switch {
		case err != nil:
			errs = errors.Join(errs, fmt.Errorf("%T %w", w, err))
		case n != len(p):
			errs = errors.Join(errs, fmt.Errorf("%T %w", w, io.ErrShortWrite))
		}
	}
	if errs != nil {
		return 0, errs
	}
	return len(p), nil
}
