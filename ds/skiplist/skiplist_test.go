package skiplist

import (
	"math/rand"
	"sort"
	"testing"
)

// 测试数字
func TestSkiplistInt(t *testing.T) {
	sl := NewSkipList[Int64]()
	pool := []int{}
	for i := 1; i <= 100; i++ {
		pool = append(pool, i)
	}
	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	for _, i := range pool {
		sl.Insert(Int64(i))
	}
	if sl.Len() != 100 {
		t.Fatalf("len: %d", sl.Len())
	}
	// 升序遍历
	prev := Int64(0)
	sl.Foreach(func(d Int64) bool {
		if d <= prev {
			t.Fatalf("order broken: %d after %d", d, prev)
		}
		prev = d
		return true
	})
	if v, ok := sl.First(); !ok || v != 1 {
		t.Fatalf("first: %v %v", v, ok)
	}
	// 删除一半后首元素跟着变
	for i := 1; i <= 50; i++ {
		if !sl.Remove(Int64(i)) {
			t.Fatalf("remove %d failed", i)
		}
	}
	if sl.Remove(Int64(7)) {
		t.Fatal("double remove should fail")
	}
	if v, _ := sl.First(); v != 51 {
		t.Fatalf("first after removes: %v", v)
	}
}

// 测试复杂数据, 同 score 靠 seq 去重
func TestSkiplistData(t *testing.T) {
	sl := NewSkipList[*_Data]()
	var all []*_Data
	for i := 0; i < 50; i++ {
		d := &_Data{when: float64(rand.Intn(10)), seq: uint64(i)}
		all = append(all, d)
		sl.Insert(d)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Compare(all[j]) < 0
	})
	idx := 0
	sl.Foreach(func(d *_Data) bool {
		if d != all[idx] {
			t.Fatalf("pos %d: got %v want %v", idx, d, all[idx])
		}
		idx++
		return true
	})
	first, _ := sl.First()
	if first != all[0] {
		t.Fatalf("first: %v", first)
	}
	for _, d := range all {
		if !sl.Contains(d) {
			t.Fatalf("contains %v", d)
		}
		sl.Remove(d)
	}
	if sl.Len() != 0 {
		t.Fatalf("len after drain: %d", sl.Len())
	}
	sl.Insert(all[0])
	sl.Clear()
	if _, ok := sl.First(); ok {
		t.Fatal("first on cleared list")
	}
}

type _Data struct {
	when float64
	seq  uint64
}

func (d *_Data) Compare(o *_Data) int {
	if d.when < o.when {
		return -1
	} else if d.when > o.when {
		return 1
	}
	if d.seq < o.seq {
		return -1
	} else if d.seq > o.seq {
		return 1
	}
	return 0
}

// Int64 升序
type Int64 int64

var _ ElemType[Int64] = Int64(0)

func (v Int64) Compare(o Int64) int {
	if v < o {
		return -1
	} else if v > o {
		return 1
	}
	return 0
}
