package pager

import (
	"sync"
	"sync/atomic"
)

// NoPage is the pagenum for when there is no page being held
const NoPage = -1

// Page caches one Pagesize block of the backing file.
type Page struct {
	pager    *Pager       // Pointer to the pager that this page belongs to
	pagenum  int64        // Block number; the page covers [pagenum*Pagesize, (pagenum+1)*Pagesize)
	pinCount atomic.Int64 // The number of active references to this page
	dirty    bool         // Whether the cached bytes differ from the file
	rwlock   sync.RWMutex // Reader-writer lock on the page struct itself
	data     []byte       // Aligned frame holding the block's bytes
}

// GetPager returns the pager this page belongs to.
func (page *Page) GetPager() *Pager {
	return page.pager
}

// GetPageNum returns the page's pagenum.
func (page *Page) GetPageNum() int64 {
	return page.pagenum
}

// IsDirty reports whether the page's data has changed and needs to be written to disk.
func (page *Page) IsDirty() bool {
	return page.dirty
}

// SetDirty changes the dirty status of a page.
func (page *Page) SetDirty(dirty bool) {
	page.dirty = dirty
}

// GetData returns the byte data held by the page.
func (page *Page) GetData() []byte {
	return page.data
}

// Get increments the pin count.
func (page *Page) Get() {
	page.pinCount.Add(1)
}

// Put decrements the pin count and returns the new value.
func (page *Page) Put() int64 {
	return page.pinCount.Add(-1)
}

// Update copies data into the page at offset and marks the page dirty.
func (page *Page) Update(data []byte, offset int64) {
	page.dirty = true
	copy(page.data[offset:], data)
}

// reset clears the frame so a recycled page never leaks another block's bytes.
func (page *Page) reset(pagenum int64) {
	page.pagenum = pagenum
	page.dirty = false
	clear(page.data)
}

func (page *Page) WLock() {
	page.rwlock.Lock()
}

func (page *Page) WUnlock() {
	page.rwlock.Unlock()
}

func (page *Page) RLock() {
	page.rwlock.RLock()
}

func (page *Page) RUnlock() {
	page.rwlock.RUnlock()
}
