package pager

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dinohash/pkg/list"
	"dinohash/pkg/repl"
)

// PagerRepl returns a REPL for inspecting and poking at the file behind p.
func PagerRepl(p *Pager) *repl.REPL {
	r := repl.NewRepl()

	r.MustAddCommand("pager_print", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandlePagerPrint(p, payload)
	}, "Print out the state of the pager. usage: pager_print")

	r.MustAddCommand("pager_read", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandlePagerRead(p, payload)
	}, "Read bytes from the file. usage: pager_read <offset> <length>")

	r.MustAddCommand("pager_write", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandlePagerWrite(p, payload)
	}, "Write a string into the file. usage: pager_write <offset> <payload>")

	r.MustAddCommand("pager_size", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return HandlePagerSize(p, payload)
	}, "Print the logical size of the file. usage: pager_size")

	r.MustAddCommand("pager_truncate", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandlePagerTruncate(p, payload)
	}, "Change the size of the file. usage: pager_truncate <size>")

	r.MustAddCommand("pager_flushall", func(payload string, replConfig *repl.REPLConfig) (string, error) {
		return "", HandlePagerFlushAll(p, payload)
	}, "Flush all pages and sync the file. usage: pager_flushall")

	return r
}

// Function to print out state of the pager.
func HandlePagerPrint(p *Pager, payload string) (output string, err error) {
	if len(strings.Fields(payload)) != 1 {
		return "", errors.New("usage: pager_print")
	}
	p.ptMtx.Lock()
	defer p.ptMtx.Unlock()

	w := new(strings.Builder)
	// Print size, numPages, freeList, unpinnedList, pinnedList.
	fmt.Fprintf(w, "size: %d, numPages: %d, direct: %v\n", p.size, p.numPages, p.direct)
	fmt.Fprintf(w, "freeList: %d pages\n", p.freeList.Len())
	io.WriteString(w, "unpinnedList: ")
	p.unpinnedList.Map(func(l *list.Link[*Page]) {
		page := l.GetValue()
		fmt.Fprintf(w, "(pagenum: %v, pincount: %v, dirty: %v), ", page.GetPageNum(), page.pinCount.Load(), page.IsDirty())
	})
	io.WriteString(w, "\npinnedList: ")
	p.pinnedList.Map(func(l *list.Link[*Page]) {
		page := l.GetValue()
		fmt.Fprintf(w, "(pagenum: %v, pincount: %v, dirty: %v), ", page.GetPageNum(), page.pinCount.Load(), page.IsDirty())
	})
	io.WriteString(w, "\n")
	return w.String(), nil
}

// Function to read length bytes at offset. Output is quoted so binary data stays printable.
func HandlePagerRead(p *Pager, payload string) (output string, err error) {
	fields := strings.Fields(payload)
	// Usage: pager_read <offset> <length>
	if len(fields) != 3 {
		return "", errors.New("usage: pager_read <offset> <length>")
	}
	offset, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", err
	}
	length, err := strconv.Atoi(fields[2])
	if err != nil {
		return "", err
	}
	if length < 0 {
		return "", fmt.Errorf("negative length %d", length)
	}
	buf := make([]byte, length)
	n, err := p.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strconv.Quote(string(buf[:n])), nil
}

// Function to write a string at offset.
func HandlePagerWrite(p *Pager, payload string) (err error) {
	fields := strings.Fields(payload)
	// Usage: pager_write <offset> <payload>
	if len(fields) != 3 {
		return errors.New("usage: pager_write <offset> <payload>")
	}
	offset, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return err
	}
	_, err = p.WriteAt([]byte(fields[2]), offset)
	return err
}

// Function to print the logical size of the file.
func HandlePagerSize(p *Pager, payload string) (output string, err error) {
	if len(strings.Fields(payload)) != 1 {
		return "", errors.New("usage: pager_size")
	}
	size, err := p.Size()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(size, 10), nil
}

// Function to truncate or extend the file.
func HandlePagerTruncate(p *Pager, payload string) (err error) {
	fields := strings.Fields(payload)
	// Usage: pager_truncate <size>
	if len(fields) != 2 {
		return errors.New("usage: pager_truncate <size>")
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return err
	}
	return p.Truncate(size)
}

// Function to flush all pages.
func HandlePagerFlushAll(p *Pager, payload string) (err error) {
	if len(strings.Fields(payload)) != 1 {
		return errors.New("usage: pager_flushall")
	}
	return p.Sync()
}
