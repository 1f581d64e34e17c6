// Package pager implements a write-through block cache over a directio file.
//
// The pager keeps up to config.MaxPagesInBuffer aligned frames in memory and
// exposes the file both as pages (GetPage/GetNewPage/PutPage) and as a plain
// byte-addressed file (ReadAt/WriteAt/Size/Truncate). Byte writes are flushed
// before WriteAt returns, and the file is trimmed back to its logical size
// after every write that flushed a page past it, so the file on disk is
// never page-padded between operations.
package pager

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"dinohash/pkg/config"
	"dinohash/pkg/list"

	"github.com/ncw/directio"
)

// Pagesize is the size of an individual page - defaults to 4kb.
const Pagesize int64 = directio.BlockSize

var (
	// ErrRanOutOfPages is returned when there are no free/unpinned pages to be used.
	ErrRanOutOfPages = errors.New("no available pages")

	// ErrClosed is returned by operations on a closed pager.
	ErrClosed = errors.New("pager is closed")

	// ErrInvalidPage is returned when asking for a page past the end of the file.
	ErrInvalidPage = errors.New("invalid pagenum")
)

// Pager is a data structure that manages pages of data stored in a file.
type Pager struct {
	file         *os.File          // File descriptor for the file that backs this pager on disk.
	path         string            // Path the file was opened with.
	direct       bool              // Whether file was opened with O_DIRECT.
	size         int64             // Logical size of the file in bytes.
	numPages     int64             // Number of pages covering size.
	freeList     *list.List[*Page] // Pre-allocated (but unused) pages.
	unpinnedList *list.List[*Page] // Pages in memory that are not currently in use.
	pinnedList   *list.List[*Page] // Pages in memory currently in use.
	// The page table, which maps pagenums to the link holding the page.
	pageTable map[int64]*list.Link[*Page]
	ptMtx     sync.Mutex
}

// New constructs a new Pager backed by the file at filePath.
// See [*Pager.Open] for how the file is opened.
func New(filePath string) (pager *Pager, err error) {
	pager = &Pager{}
	pager.pageTable = make(map[int64]*list.Link[*Page])
	pager.freeList = list.NewList[*Page]()
	pager.unpinnedList = list.NewList[*Page]()
	pager.pinnedList = list.NewList[*Page]()
	frames := directio.AlignedBlock(int(Pagesize) * config.MaxPagesInBuffer)
	for i := 0; i < config.MaxPagesInBuffer; i++ {
		frame := frames[i*int(Pagesize) : (i+1)*int(Pagesize)]
		pager.freeList.PushTail(&Page{pager: pager, pagenum: NoPage, data: frame})
	}

	err = pager.Open(filePath)
	if err != nil {
		pager = nil
	}
	return
}

// Name returns the path used to open the pager's backing file.
func (pager *Pager) Name() string {
	return pager.path
}

// GetFileName returns the file name/path used to open the pager's backing file.
func (pager *Pager) GetFileName() string {
	return pager.Name()
}

// GetNumPages returns the number of pages covering the logical file.
func (pager *Pager) GetNumPages() int64 {
	pager.ptMtx.Lock()
	defer pager.ptMtx.Unlock()
	return pager.numPages
}

// IsDirect reports whether the backing file bypasses the OS page cache.
func (pager *Pager) IsDirect() bool {
	return pager.direct
}

// Open (re-)initializes the pager with the file at filePath, creating it and
// its parent directories if needed.
//
// The file is opened with O_DIRECT when the filesystem supports it; on
// filesystems that refuse O_DIRECT (tmpfs, for one) it falls back to a
// regular buffered file. Unlike page-only stores the file does not need to
// be a multiple of Pagesize.
func (pager *Pager) Open(filePath string) (err error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err = os.MkdirAll(dir, 0775); err != nil {
			return err
		}
	}
	pager.path = filePath
	pager.direct = true
	pager.file, err = directio.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		pager.direct = false
		pager.file, err = os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0666)
		if err != nil {
			return err
		}
	}
	info, err := pager.file.Stat()
	if err != nil {
		pager.file.Close()
		return err
	}
	pager.size = info.Size()
	pager.numPages = pagesFor(pager.size)
	return nil
}

// Close flushes all dirty pages, trims the file to its logical size and
// closes it. Cached pages are released.
func (pager *Pager) Close() error {
	pager.ptMtx.Lock()
	defer pager.ptMtx.Unlock()
	if pager.file == nil {
		return ErrClosed
	}
	if pager.pinnedList.PeekHead() != nil {
		return errors.New("pages are still pinned on close")
	}
	err := pager.FlushAllPages()
	if err == nil {
		err = pager.file.Truncate(pager.size)
	}
	pager.dropPagesFrom(0)
	if cerr := pager.file.Close(); err == nil {
		err = cerr
	}
	pager.file = nil
	return err
}

// Sync flushes dirty pages, trims the file to its logical size and asks the
// OS to persist it.
func (pager *Pager) Sync() error {
	pager.ptMtx.Lock()
	defer pager.ptMtx.Unlock()
	if pager.file == nil {
		return ErrClosed
	}
	if err := pager.FlushAllPages(); err != nil {
		return err
	}
	if err := pager.file.Truncate(pager.size); err != nil {
		return err
	}
	return pager.file.Sync()
}

// Size returns the logical size of the file in bytes.
func (pager *Pager) Size() (int64, error) {
	pager.ptMtx.Lock()
	defer pager.ptMtx.Unlock()
	if pager.file == nil {
		return 0, ErrClosed
	}
	return pager.size, nil
}

// Truncate changes the logical size of the file. Bytes past size read back
// as zero if the file later grows again.
func (pager *Pager) Truncate(size int64) error {
	if size < 0 {
		return fmt.Errorf("truncate to %d: negative size", size)
	}
	pager.ptMtx.Lock()
	defer pager.ptMtx.Unlock()
	if pager.file == nil {
		return ErrClosed
	}
	if err := pager.FlushAllPages(); err != nil {
		return err
	}
	pager.dropPagesFrom(size / Pagesize)
	if err := pager.file.Truncate(size); err != nil {
		return err
	}
	pager.size = size
	pager.numPages = pagesFor(size)
	return nil
}

// ReadAt reads len(p) bytes starting at off. Like io.ReaderAt it returns
// io.EOF when fewer bytes are available.
func (pager *Pager) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	size, err := pager.Size()
	if err != nil {
		return 0, err
	}
	for n < len(p) && off+int64(n) < size {
		pos := off + int64(n)
		page, err := pager.GetPage(pos / Pagesize)
		if err != nil {
			return n, err
		}
		start := pos % Pagesize
		end := min(Pagesize, start+int64(len(p)-n), size-(pos-start))
		page.RLock()
		n += copy(p[n:], page.data[start:end])
		page.RUnlock()
		if err = pager.PutPage(page); err != nil {
			return n, err
		}
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes p at off, growing the file as needed, and flushes every
// touched page before returning.
func (pager *Pager) WriteAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("write at %d: negative offset", off)
	}
	for n < len(p) {
		pos := off + int64(n)
		page, err := pager.getOrCreatePage(pos / Pagesize)
		if err != nil {
			return n, err
		}
		start := pos % Pagesize
		chunk := min(Pagesize-start, int64(len(p)-n))
		page.WLock()
		page.Update(p[n:n+int(chunk)], start)
		err = pager.FlushPage(page)
		page.WUnlock()
		if perr := pager.PutPage(page); err == nil {
			err = perr
		}
		if err != nil {
			return n, err
		}
		n += int(chunk)
		pager.grow(pos + chunk)
	}
	return n, pager.trimPadding(off + int64(n))
}

// grow extends the logical size to at least end.
func (pager *Pager) grow(end int64) {
	pager.ptMtx.Lock()
	defer pager.ptMtx.Unlock()
	if end > pager.size {
		pager.size = end
	}
}

// trimPadding cuts the file back to its logical size when the page flushed
// for a write ending at end ran past it, so the file on disk never holds
// page padding between operations.
func (pager *Pager) trimPadding(end int64) error {
	pager.ptMtx.Lock()
	defer pager.ptMtx.Unlock()
	if pagesFor(end)*Pagesize <= pager.size {
		return nil
	}
	return pager.file.Truncate(pager.size)
}

// getOrCreatePage returns page pagenum, allocating zeroed pages up to it when
// it lies past the end of the file.
func (pager *Pager) getOrCreatePage(pagenum int64) (*Page, error) {
	for pager.GetNumPages() <= pagenum {
		page, err := pager.GetNewPage()
		if err != nil {
			return nil, err
		}
		if page.GetPageNum() == pagenum {
			return page, nil
		}
		if err = pager.PutPage(page); err != nil {
			return nil, err
		}
	}
	return pager.GetPage(pagenum)
}

// fillPageFromDisk populates a page's data field from the data currently on disk.
// Bytes past the end of the physical file stay zero.
func (pager *Pager) fillPageFromDisk(page *Page) error {
	if _, err := pager.file.ReadAt(page.data, page.pagenum*Pagesize); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// newPage returns a currently unused Page from the free or unpinned list,
// or ErrRanOutOfPages if there are no unused pages available.
// The ptMtx should be locked on entry.
func (pager *Pager) newPage(pagenum int64) (newPage *Page, err error) {
	if freeLink := pager.freeList.PeekHead(); freeLink != nil {
		freeLink.PopSelf()
		newPage = freeLink.GetValue()
	} else if unpinLink := pager.unpinnedList.PeekHead(); unpinLink != nil {
		// Evict the least recently unpinned page.
		newPage = unpinLink.GetValue()
		if err = pager.FlushPage(newPage); err != nil {
			return nil, err
		}
		unpinLink.PopSelf()
		delete(pager.pageTable, newPage.pagenum)
	} else {
		return nil, ErrRanOutOfPages
	}
	newPage.reset(pagenum)
	newPage.pinCount.Store(1)
	return newPage, nil
}

// GetNewPage returns a new zeroed Page with the next available pagenum.
// The page only becomes part of the file's logical size once bytes are
// written into it through WriteAt.
func (pager *Pager) GetNewPage() (page *Page, err error) {
	pager.ptMtx.Lock()
	defer pager.ptMtx.Unlock()
	if pager.file == nil {
		return nil, ErrClosed
	}
	page, err = pager.newPage(pager.numPages)
	if err != nil {
		return nil, err
	}
	page.dirty = true
	pager.pageTable[pager.numPages] = pager.pinnedList.PushTail(page)
	pager.numPages++
	return page, nil
}

// GetPage returns an existing Page corresponding to the given pagenum.
// The page must be released with PutPage.
func (pager *Pager) GetPage(pagenum int64) (page *Page, err error) {
	pager.ptMtx.Lock()
	defer pager.ptMtx.Unlock()
	if pager.file == nil {
		return nil, ErrClosed
	}
	if pagenum < 0 || pagenum > pager.numPages-1 {
		return nil, fmt.Errorf("%w %d", ErrInvalidPage, pagenum)
	}
	if link, ok := pager.pageTable[pagenum]; ok {
		page = link.GetValue()
		if link.GetList() == pager.unpinnedList {
			link.PopSelf()
			pager.pageTable[pagenum] = pager.pinnedList.PushTail(page)
		}
		page.Get()
		return page, nil
	}
	page, err = pager.newPage(pagenum)
	if err != nil {
		return nil, err
	}
	if err = pager.fillPageFromDisk(page); err != nil {
		page.pagenum = NoPage
		pager.freeList.PushTail(page)
		return nil, err
	}
	pager.pageTable[pagenum] = pager.pinnedList.PushTail(page)
	return page, nil
}

// PutPage releases a reference to a page.
func (pager *Pager) PutPage(page *Page) error {
	pager.ptMtx.Lock()
	defer pager.ptMtx.Unlock()
	ret := page.Put()
	if ret == 0 {
		link := pager.pageTable[page.pagenum]
		link.PopSelf()
		pager.pageTable[page.pagenum] = pager.unpinnedList.PushTail(page)
	}
	if ret < 0 {
		return errors.New("pinCount for page is < 0")
	}
	return nil
}

// FlushPage writes a page's data to disk if it is dirty.
// The page should at least be read-locked upon entry.
func (pager *Pager) FlushPage(page *Page) error {
	if !page.IsDirty() {
		return nil
	}
	if _, err := pager.file.WriteAt(page.data, page.pagenum*Pagesize); err != nil {
		return err
	}
	page.SetDirty(false)
	return nil
}

// FlushAllPages flushes all dirty pages to disk.
// The pager's mutex should be locked upon entry.
func (pager *Pager) FlushAllPages() (err error) {
	writer := func(link *list.Link[*Page]) {
		if ferr := pager.FlushPage(link.GetValue()); err == nil {
			err = ferr
		}
	}
	pager.pinnedList.Map(writer)
	pager.unpinnedList.Map(writer)
	return err
}

// dropPagesFrom returns every unpinned cached page at or past pagenum to the
// free list. Pages must be flushed first.
// The pager's mutex should be locked upon entry.
func (pager *Pager) dropPagesFrom(pagenum int64) {
	pager.unpinnedList.Map(func(link *list.Link[*Page]) {
		page := link.GetValue()
		if page.pagenum < pagenum {
			return
		}
		link.PopSelf()
		delete(pager.pageTable, page.pagenum)
		page.reset(NoPage)
		pager.freeList.PushTail(page)
	})
}

// pagesFor returns the number of pages needed to cover size bytes.
func pagesFor(size int64) int64 {
	return (size + Pagesize - 1) / Pagesize
}
