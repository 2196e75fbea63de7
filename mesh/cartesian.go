package mesh

// NewCartesian builds a uniform nx x ny x nz hexahedral mesh with cell
// spacings dx, dy, dz, origin at (0,0,0). There are no ghost cells
// (NCellsExt == NCells); boundary faces cover all six sides. Interior
// face normals point from lower to higher index, matching the
// owner -> neighbour flux convention.
func NewCartesian(nx, ny, nz int, dx, dy, dz float64) *Mesh {
	nCells := nx * ny * nz
	m := &Mesh{
		NCells:    nCells,
		NCellsExt: nCells,
		CellVol:   make([]float64, nCells),
		CellCen:   make([][3]float64, nCells),
	}

	cid := func(i, j, k int) int { return i + nx*(j+ny*k) }

	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				c := cid(i, j, k)
				m.CellVol[c] = dx * dy * dz
				m.CellCen[c] = [3]float64{
					(float64(i) + 0.5) * dx,
					(float64(j) + 0.5) * dy,
					(float64(k) + 0.5) * dz,
				}
			}
		}
	}

	// areas and center-to-center distances per direction
	area := [3]float64{dy * dz, dx * dz, dx * dy}
	dist := [3]float64{dx, dy, dz}
	norm := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	addIFace := func(dir, c0, c1 int) {
		m.IFaceCells = append(m.IFaceCells, [2]int{c0, c1})
		m.IFaceSurf = append(m.IFaceSurf, area[dir])
		m.IFaceNorm = append(m.IFaceNorm, norm[dir])
		m.IDist = append(m.IDist, dist[dir])
		m.Weight = append(m.Weight, 0.5)
		fc := m.CellCen[c0]
		fc[dir] += 0.5 * dist[dir]
		m.IFaceCen = append(m.IFaceCen, fc)
	}

	addBFace := func(dir, c int, outwardPositive bool) {
		m.BFaceCells = append(m.BFaceCells, c)
		m.BFaceSurf = append(m.BFaceSurf, area[dir])
		n := norm[dir]
		sign := 1.0
		if !outwardPositive {
			sign = -1.0
		}
		n[dir] *= sign
		m.BFaceNorm = append(m.BFaceNorm, n)
		m.BDist = append(m.BDist, 0.5*dist[dir])
		fc := m.CellCen[c]
		fc[dir] += sign * 0.5 * dist[dir]
		m.BFaceCen = append(m.BFaceCen, fc)
	}

	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				c := cid(i, j, k)
				if i+1 < nx {
					addIFace(0, c, cid(i+1, j, k))
				} else {
					addBFace(0, c, true)
				}
				if i == 0 {
					addBFace(0, c, false)
				}
				if j+1 < ny {
					addIFace(1, c, cid(i, j+1, k))
				} else {
					addBFace(1, c, true)
				}
				if j == 0 {
					addBFace(1, c, false)
				}
				if k+1 < nz {
					addIFace(2, c, cid(i, j, k+1))
				} else {
					addBFace(2, c, true)
				}
				if k == 0 {
					addBFace(2, c, false)
				}
			}
		}
	}

	m.NIFaces = len(m.IFaceCells)
	m.NBFaces = len(m.BFaceCells)
	return m
}
