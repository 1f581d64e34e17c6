// Package list is a doubly linked list whose links can remove themselves,
// used by the pager to move page frames between its free, pinned and
// unpinned lists.
package list

// List struct.
type List[T any] struct {
	head *Link[T]
	tail *Link[T]
	size int
}

// Create a new list.
func NewList[T any]() *List[T] {
	return &List[T]{}
}

// Get a pointer to the head of the list.
func (list *List[T]) PeekHead() *Link[T] {
	return list.head
}

// Get a pointer to the tail of the list.
func (list *List[T]) PeekTail() *Link[T] {
	return list.tail
}

// Len returns the number of links in the list.
func (list *List[T]) Len() int {
	return list.size
}

// Add an element to the start of the list. Returns the added link.
func (list *List[T]) PushHead(value T) *Link[T] {
	newlink := &Link[T]{list: list, next: list.head, value: value}
	if list.head != nil {
		list.head.prev = newlink
	}
	list.head = newlink
	if list.tail == nil {
		list.tail = newlink
	}
	list.size++
	return newlink
}

// Add an element to the end of the list. Returns the added link.
func (list *List[T]) PushTail(value T) *Link[T] {
	newlink := &Link[T]{list: list, prev: list.tail, value: value}
	if list.tail != nil {
		list.tail.next = newlink
	}
	list.tail = newlink
	if list.head == nil {
		list.head = newlink
	}
	list.size++
	return newlink
}

// Find an element in a list given a boolean function, f, that evaluates to true on the desired element.
func (list *List[T]) Find(f func(*Link[T]) bool) *Link[T] {
	for cur := list.head; cur != nil; cur = cur.next {
		if f(cur) {
			return cur
		}
	}
	return nil
}

// Apply a function to every element in the list.
// The function may pop the link it is given.
func (list *List[T]) Map(f func(*Link[T])) {
	for cur := list.head; cur != nil; {
		next := cur.next
		f(cur)
		cur = next
	}
}

// Link struct.
type Link[T any] struct {
	list  *List[T]
	prev  *Link[T]
	next  *Link[T]
	value T
}

// Get the list that this link is a part of.
func (link *Link[T]) GetList() *List[T] {
	return link.list
}

// Get the link's value.
func (link *Link[T]) GetValue() T {
	return link.value
}

// Set the link's value.
func (link *Link[T]) SetValue(value T) {
	link.value = value
}

// Get the link's prev.
func (link *Link[T]) GetPrev() *Link[T] {
	return link.prev
}

// Get the link's next.
func (link *Link[T]) GetNext() *Link[T] {
	return link.next
}

// Remove the link from its list. Popping a detached link is a no-op.
func (link *Link[T]) PopSelf() {
	list := link.list
	if list == nil {
		return
	}
	if link.prev == nil {
		list.head = link.next
	} else {
		link.prev.next = link.next
	}
	if link.next == nil {
		list.tail = link.prev
	} else {
		link.next.prev = link.prev
	}
	list.size--
	link.list = nil
	link.prev = nil
	link.next = nil
}
