package scheduler

// readyQueue is a fixed ring of task slot indices.
type readyQueue struct {
	slots [MaxReadyTasks]uint16
	head  int
	n     int
}

func (q *readyQueue) len() int { return q.n }

func (q *readyQueue) full() bool { return q.n == MaxReadyTasks }

func (q *readyQueue) push(slot uint16) bool {
	if q.full() {
		return false
	}
	q.slots[(q.head+q.n)%MaxReadyTasks] = slot
	q.n++
	return true
}

// at returns the i-th entry counted from the head.
func (q *readyQueue) at(i int) uint16 {
	return q.slots[(q.head+i)%MaxReadyTasks]
}

func (q *readyQueue) pop() (uint16, bool) {
	if q.n == 0 {
		return 0, false
	}
	slot := q.slots[q.head]
	q.head = (q.head + 1) % MaxReadyTasks
	q.n--
	return slot, true
}

// removeAt removes the i-th entry counted from the head and shifts the
// entries behind it forward, keeping their order.
func (q *readyQueue) removeAt(i int) uint16 {
	if i == 0 {
		slot, _ := q.pop()
		return slot
	}
	slot := q.at(i)
	for j := i; j < q.n-1; j++ {
		q.slots[(q.head+j)%MaxReadyTasks] = q.at(j + 1)
	}
	q.n--
	return slot
}

func (q *readyQueue) clear() {
	q.head = 0
	q.n = 0
}
