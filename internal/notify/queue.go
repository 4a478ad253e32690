package notify

import "container/heap"

// alertQueue is a min-heap of pending alerts ordered by fire time, then by
// scheduling order.
type alertQueue []*Alert

func (q alertQueue) Len() int { return len(q) }

func (q alertQueue) Less(i, j int) bool {
	if q[i].FireAt.Equal(q[j].FireAt) {
		return q[i].seq < q[j].seq
	}
	return q[i].FireAt.Before(q[j].FireAt)
}

func (q alertQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *alertQueue) Push(x any) { *q = append(*q, x.(*Alert)) }

func (q *alertQueue) Pop() any {
	old := *q
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return a
}

func (q *alertQueue) push(a *Alert) { heap.Push(q, a) }

func (q *alertQueue) peek() (*Alert, bool) {
	if len(*q) == 0 {
		return nil, false
	}
	return (*q)[0], true
}

func (q *alertQueue) pop() *Alert { return heap.Pop(q).(*Alert) }
