package mesh

// Mesh carries the topology and geometry a finite volume kernel needs:
// owned and ghost cell counts, interior and boundary face adjacency,
// and the metric quantities used by gradient reconstruction and the
// time-step operator. It is read-only from the point of view of every
// package in this module; ownership stays with whatever built it.
type Mesh struct {
	NCells    int // owned cells
	NCellsExt int // owned + ghost cells
	NIFaces   int
	NBFaces   int

	// IFaceCells[f] = [owner, neighbour]; positive mass flux goes
	// owner -> neighbour.
	IFaceCells [][2]int
	// BFaceCells[f] = adjacent interior cell
	BFaceCells []int

	CellVol []float64    // sized NCellsExt
	CellCen [][3]float64 // sized NCellsExt

	IFaceSurf []float64    // face area
	IFaceNorm [][3]float64 // unit normal, oriented owner -> neighbour
	IFaceCen  [][3]float64
	IDist     []float64 // owner-to-neighbour centroid distance
	Weight    []float64 // owner-side interpolation weight in [0,1]

	BFaceSurf []float64
	BFaceNorm [][3]float64 // unit normal, oriented outward
	BFaceCen  [][3]float64
	BDist     []float64 // cell-centroid-to-face distance

	// Solid/masked cells. When HasDisableFlag is false Disabled is nil.
	HasDisableFlag bool
	Disabled       []bool

	// Halo is nil on a serial mesh with no ghost cells. When present,
	// kernels that produce ghost-read values call it after each
	// parallel region so ghost entries are coherent before the next
	// face sweep.
	Halo Halo
}

// Halo exchanges ghost cell values with neighbouring partitions.
type Halo interface {
	// SyncScalars updates the ghost tail of a per-cell array with
	// dim interleaved components.
	SyncScalars(vals []float64, dim int)
	// SyncVectors updates the ghost tail of a per-cell vector array.
	SyncVectors(vals [][3]float64)
}

// CellDisabled reports whether c is masked out of volume normalizations.
func (m *Mesh) CellDisabled(c int) bool {
	return m.HasDisableFlag && m.Disabled[c]
}

// InvVol returns 1/V for an active cell and exactly zero for a disabled
// one, so masked cells never poison a minimum reduction with infinities.
func (m *Mesh) InvVol(c int) float64 {
	if m.CellDisabled(c) {
		return 0
	}
	return 1.0 / m.CellVol[c]
}
