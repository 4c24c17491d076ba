package fifo

const minCap = 8

// Queue 环形缓冲队列, 先进先出, 按需扩容
type Queue[T any] struct {
	buf  []T
	head int
	n    int
	zero T // 零值
}

func New[T any](sizeHint int) *Queue[T] {
	if sizeHint < minCap {
		sizeHint = minCap
	}
	return &Queue[T]{
		buf: make([]T, sizeHint),
	}
}

func (q *Queue[T]) Len() int {
	return q.n
}

func (q *Queue[T]) IsEmpty() bool {
	return q.n == 0
}

func (q *Queue[T]) Push(data T) {
	if q.n == len(q.buf) {
		q.grow()
	}
	q.buf[(q.head+q.n)%len(q.buf)] = data
	q.n++
}

func (q *Queue[T]) Pop() (data T, ok bool) {
	if q.n == 0 {
		return //empty
	}
	data = q.buf[q.head]
	q.buf[q.head] = q.zero
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return data, true
}

// PopN 一次弹出 n 个, 不足 n 个时不动队列
func (q *Queue[T]) PopN(n int) ([]T, bool) {
	if n <= 0 || q.n < n {
		return nil, false
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		v, _ := q.Pop()
		out = append(out, v)
	}
	return out, true
}

func (q *Queue[T]) First() (data T, ok bool) {
	if q.n == 0 {
		return
	}
	return q.buf[q.head], true
}

func (q *Queue[T]) Clear() {
	for i := 0; i < q.n; i++ {
		q.buf[(q.head+i)%len(q.buf)] = q.zero
	}
	q.head = 0
	q.n = 0
}

// Range 从队头向队尾遍历, f 返回 false 中断
func (q *Queue[T]) Range(f func(data T) bool) {
	for i := 0; i < q.n; i++ {
		if !f(q.buf[(q.head+i)%len(q.buf)]) {
			return
		}
	}
}

func (q *Queue[T]) grow() {
	buf := make([]T, len(q.buf)*2)
	for i := 0; i < q.n; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
