package parallel

import "sync"

// PartitionMap splits a cell or face index range into ParallelDegree
// contiguous partitions with a maximum imbalance of one item. Each
// partition is worked by one goroutine of the shared-memory pool.
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // begin and end index of each partition
}

func NewPartitionMap(parallelDegree, maxIndex int) (pm *PartitionMap) {
	if parallelDegree < 1 {
		parallelDegree = 1
	}
	if parallelDegree > maxIndex && maxIndex > 0 {
		parallelDegree = maxIndex
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: parallelDegree,
		Partitions:     make([][2]int, parallelDegree),
	}
	for n := 0; n < parallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bucketNum int) (kMax int) {
	k1, k2 := pm.GetBucketRange(bucketNum)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// Splits one dimension into ParallelDegree pieces, with a maximum
	// imbalance of one item
	var (
		Npart            = pm.MaxIndex / pm.ParallelDegree
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// For runs fn over every partition of [0, maxIndex) and blocks until
// all partitions complete: the call is a synchronization point, so the
// caller may read result arrays as soon as it returns. Iterations must
// be independent per index.
func For(parallelDegree, maxIndex int, fn func(kMin, kMax int)) {
	if maxIndex <= 0 {
		return
	}
	pm := NewPartitionMap(parallelDegree, maxIndex)
	var wg sync.WaitGroup
	for n := 0; n < pm.ParallelDegree; n++ {
		kMin, kMax := pm.GetBucketRange(n)
		wg.Add(1)
		go func(kMin, kMax int) {
			defer wg.Done()
			fn(kMin, kMax)
		}(kMin, kMax)
	}
	wg.Wait()
}
