/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package channel implements spec.md section 4.12: a bounded FIFO with
// independent producer and consumer waiter sets. Invariants C1/C2 (a
// non-empty producer waiter set implies the FIFO is full; a non-empty
// consumer waiter set implies it is empty) hold because every blocking
// operation re-checks its predicate in a loop after each wakeup — another
// waiter may have raced in between, exactly as spec.md section 4.12
// requires.
package channel

import (
	"github.com/nanokern/nanokern/kagent"
	"github.com/nanokern/nanokern/ringbuf"
	"github.com/nanokern/nanokern/service"
)

// Channel[T] is a bounded FIFO of capacity N with blocking push/pop and
// non-blocking ISR variants.
type Channel[T any] struct {
	agent     kagent.Agent
	fifo      *ringbuf.FIFO[T]
	producers service.Waiters
	consumers service.Waiters
}

// New constructs an empty Channel of capacity n bound to agent.
func New[T any](agent kagent.Agent, n int) *Channel[T] {
	return &Channel[T]{agent: agent, fifo: ringbuf.New[T](n)}
}

// Push blocks while the FIFO is full, then enqueues item at the tail and
// wakes the highest-priority blocked consumer, if any.
func (c *Channel[T]) Push(item T) {
	exit := c.agent.Guard().Enter()
	defer exit()
	c.waitForSpaceLocked()
	c.fifo.Push(item)
	c.wakeOneConsumerLocked()
}

// PushFront is Push but inserts at the head, per spec.md's push_front.
func (c *Channel[T]) PushFront(item T) {
	exit := c.agent.Guard().Enter()
	defer exit()
	c.waitForSpaceLocked()
	c.fifo.PushFront(item)
	c.wakeOneConsumerLocked()
}

// waitForSpaceLocked suspends the caller on the producer waiter set until
// Free() > 0, re-checking after every wakeup since another producer may
// have raced in and consumed the freed slot first.
func (c *Channel[T]) waitForSpaceLocked() {
	cur := c.agent.CurProc()
	for c.fifo.Free() == 0 {
		cur.SetWaitingFor(c)
		service.Suspend(c.agent, &c.producers, 0)
		cur.ClearWaitingFor()
	}
}

func (c *Channel[T]) wakeOneConsumerLocked() {
	if _, ok := service.ResumeNextReady(c.agent, &c.consumers); ok {
		c.agent.InvokeScheduler()
	}
}

// Pop blocks until an item is available or timeout ticks elapse (0 =
// unbounded), dequeuing from the head. It returns false, with out
// unchanged, if the wait timed out.
func (c *Channel[T]) Pop(timeout uint32) (out T, ok bool) {
	exit := c.agent.Guard().Enter()
	defer exit()

	if !c.waitForItemLocked(timeout) {
		return out, false
	}
	out = c.fifo.Pop()
	c.wakeOneProducerLocked()
	return out, true
}

// PopBack is Pop but dequeues from the tail, per spec.md's pop_back.
func (c *Channel[T]) PopBack(timeout uint32) (out T, ok bool) {
	exit := c.agent.Guard().Enter()
	defer exit()

	if !c.waitForItemLocked(timeout) {
		return out, false
	}
	out = c.fifo.PopBack()
	c.wakeOneProducerLocked()
	return out, true
}

func (c *Channel[T]) waitForItemLocked(timeout uint32) bool {
	cur := c.agent.CurProc()
	for c.fifo.Count() == 0 {
		cur.SetWaitingFor(c)
		woken := service.Suspend(c.agent, &c.consumers, timeout)
		cur.ClearWaitingFor()
		if !woken {
			return false
		}
	}
	return true
}

func (c *Channel[T]) wakeOneProducerLocked() {
	if _, ok := service.ResumeNextReady(c.agent, &c.producers); ok {
		c.agent.InvokeScheduler()
	}
}

// Write is the blocking bulk push: it waits until at least len(data)
// slots are free, then enqueues all of data at the tail as one
// critical-section-atomic step (spec.md section 4.12 and the open
// question on bulk/pop_back interleaving: bulk operations hold the
// critical section across their predicate check and the entire advance,
// so no individual pop_back from another consumer can interleave mid-
// write).
func (c *Channel[T]) Write(data []T) {
	exit := c.agent.Guard().Enter()
	defer exit()

	cur := c.agent.CurProc()
	for c.fifo.Free() < len(data) {
		cur.SetWaitingFor(c)
		service.Suspend(c.agent, &c.producers, 0)
		cur.ClearWaitingFor()
	}
	for _, v := range data {
		c.fifo.Push(v)
	}
	c.wakeOneConsumerLocked()
}

// Read is the blocking bulk pop: it waits until at least len(out) items
// are available, then dequeues them from the head into out. It returns
// false, with out left untouched, if timeout ticks elapse first.
func (c *Channel[T]) Read(out []T, timeout uint32) bool {
	exit := c.agent.Guard().Enter()
	defer exit()

	cur := c.agent.CurProc()
	for c.fifo.Count() < len(out) {
		cur.SetWaitingFor(c)
		woken := service.Suspend(c.agent, &c.consumers, timeout)
		cur.ClearWaitingFor()
		if !woken {
			return false
		}
	}
	for i := range out {
		out[i] = c.fifo.Pop()
	}
	c.wakeOneProducerLocked()
	return true
}

// WriteISR is the non-blocking ISR variant: it writes min(len(data),
// Free()) items and wakes every waiting consumer if any write occurred. It
// returns the count actually written.
func (c *Channel[T]) WriteISR(data []T) int {
	exit := c.agent.Guard().Enter()
	defer exit()

	n := len(data)
	if free := c.fifo.Free(); n > free {
		n = free
	}
	for i := 0; i < n; i++ {
		c.fifo.Push(data[i])
	}
	if n > 0 {
		service.ResumeAll(c.agent, &c.consumers)
	}
	return n
}

// ReadISR is the non-blocking ISR variant: it reads min(len(out),
// Count()) items and wakes every waiting producer if any read occurred.
// It returns the count actually read.
func (c *Channel[T]) ReadISR(out []T) int {
	exit := c.agent.Guard().Enter()
	defer exit()

	n := len(out)
	if count := c.fifo.Count(); n > count {
		n = count
	}
	for i := 0; i < n; i++ {
		out[i] = c.fifo.Pop()
	}
	if n > 0 {
		service.ResumeAll(c.agent, &c.producers)
	}
	return n
}

// Count is the number of items currently queued.
func (c *Channel[T]) Count() int {
	exit := c.agent.Guard().Enter()
	defer exit()
	return c.fifo.Count()
}

// FreeSize is the number of additional items that can be pushed before
// the channel is full.
func (c *Channel[T]) FreeSize() int {
	exit := c.agent.Guard().Enter()
	defer exit()
	return c.fifo.Free()
}

// Flush discards every queued item without waking anyone (spec.md does
// not require flush to resume producers, only to empty the FIFO).
func (c *Channel[T]) Flush() {
	exit := c.agent.Guard().Enter()
	defer exit()
	c.fifo.Flush()
}
