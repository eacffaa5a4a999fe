package runner

// OKL sources for the field kernels. Each template takes the generated
// signature as its first argument; the preamble supplies NX/NY/NZ, the tile
// shape and the IDX/AT/ON_* macros.

// updateHSource: H' = c1·H + c2·curl(E) with forward differences
const updateHSource = `
@kernel void updateH(
	%s
) {
	for (int z = 0; z < NZ; ++z; @outer) {
		for (int y = 0; y < NY; ++y; @outer) {
			for (int x = 0; x < NX; ++x; @inner) {
				const int_t i = IDX(x, y, z);
				const real_t ex = Ex[i];
				const real_t ey = Ey[i];
				const real_t ez = Ez[i];
				const real_t cx = (AT(Ez, x, y + 1, z) - ez) - (AT(Ey, x, y, z + 1) - ey);
				const real_t cy = (AT(Ex, x, y, z + 1) - ex) - (AT(Ez, x + 1, y, z) - ez);
				const real_t cz = (AT(Ey, x + 1, y, z) - ey) - (AT(Ex, x, y + 1, z) - ex);
				real_t hx = H_C1[i] * Hx[i] + H_C2[i] * cx;
				real_t hy = H_C1[i] * Hy[i] + H_C2[i] * cy;
				real_t hz = H_C1[i] * Hz[i] + H_C2[i] * cz;
				if (boundary == BOUNDARY_PEC) {
					if (ON_X(x)) hx = REAL_ZERO;
					if (ON_Y(y)) hy = REAL_ZERO;
					if (ON_Z(z)) hz = REAL_ZERO;
				} else {
					if (ON_X(x)) { hy = REAL_ZERO; hz = REAL_ZERO; }
					if (ON_Y(y)) { hx = REAL_ZERO; hz = REAL_ZERO; }
					if (ON_Z(z)) { hx = REAL_ZERO; hy = REAL_ZERO; }
				}
				Hx[i] = hx;
				Hy[i] = hy;
				Hz[i] = hz;
			}
		}
	}
}
`

// updateESource: E' = c1·E − c2·curl(H) with backward differences
const updateESource = `
@kernel void updateE(
	%s
) {
	for (int z = 0; z < NZ; ++z; @outer) {
		for (int y = 0; y < NY; ++y; @outer) {
			for (int x = 0; x < NX; ++x; @inner) {
				const int_t i = IDX(x, y, z);
				const real_t hx = Hx[i];
				const real_t hy = Hy[i];
				const real_t hz = Hz[i];
				const real_t cx = (hz - AT(Hz, x, y - 1, z)) - (hy - AT(Hy, x, y, z - 1));
				const real_t cy = (hx - AT(Hx, x, y, z - 1)) - (hz - AT(Hz, x - 1, y, z));
				const real_t cz = (hy - AT(Hy, x - 1, y, z)) - (hx - AT(Hx, x, y - 1, z));
				real_t ex = E_C1[i] * Ex[i] - E_C2[i] * cx;
				real_t ey = E_C1[i] * Ey[i] - E_C2[i] * cy;
				real_t ez = E_C1[i] * Ez[i] - E_C2[i] * cz;
				if (boundary == BOUNDARY_PEC) {
					if (ON_X(x)) { ey = REAL_ZERO; ez = REAL_ZERO; }
					if (ON_Y(y)) { ex = REAL_ZERO; ez = REAL_ZERO; }
					if (ON_Z(z)) { ex = REAL_ZERO; ey = REAL_ZERO; }
				} else {
					if (ON_X(x)) ex = REAL_ZERO;
					if (ON_Y(y)) ey = REAL_ZERO;
					if (ON_Z(z)) ez = REAL_ZERO;
				}
				Ex[i] = ex;
				Ey[i] = ey;
				Ez[i] = ez;
			}
		}
	}
}
`

// Tiled variants stage the conjugate field of one tile in @shared memory.
// OCCA separates the load loop from the compute loop with a barrier, so
// every lane sees the whole tile before it reads a neighbour. Neighbours
// across the tile face come from global memory.
const tileMacros = `
#define TILE_FWD(S, F, dx, dy, dz) \
	((lx + (dx) < TILE_X && ly + (dy) < TILE_Y && lz + (dz) < TILE_Z) \
		? S[lz + (dz)][ly + (dy)][lx + (dx)] \
		: AT(F, x + (dx), y + (dy), z + (dz)))
#define TILE_BWD(S, F, dx, dy, dz) \
	((lx - (dx) >= 0 && ly - (dy) >= 0 && lz - (dz) >= 0) \
		? S[lz - (dz)][ly - (dy)][lx - (dx)] \
		: AT(F, x - (dx), y - (dy), z - (dz)))
`

const tileLoops = `
	for (int tz = 0; tz < NTILE_Z; ++tz; @outer) {
		for (int ty = 0; ty < NTILE_Y; ++ty; @outer) {
			for (int tx = 0; tx < NTILE_X; ++tx; @outer) {
				@shared real_t s0[TILE_Z][TILE_Y][TILE_X];
				@shared real_t s1[TILE_Z][TILE_Y][TILE_X];
				@shared real_t s2[TILE_Z][TILE_Y][TILE_X];
				for (int lz = 0; lz < TILE_Z; ++lz; @inner) {
					for (int ly = 0; ly < TILE_Y; ++ly; @inner) {
						for (int lx = 0; lx < TILE_X; ++lx; @inner) {
							const int x = tx * TILE_X + lx;
							const int y = ty * TILE_Y + ly;
							const int z = tz * TILE_Z + lz;
							s0[lz][ly][lx] = AT(%[1]sx, x, y, z);
							s1[lz][ly][lx] = AT(%[1]sy, x, y, z);
							s2[lz][ly][lx] = AT(%[1]sz, x, y, z);
						}
					}
				}
				for (int lz = 0; lz < TILE_Z; ++lz; @inner) {
					for (int ly = 0; ly < TILE_Y; ++ly; @inner) {
						for (int lx = 0; lx < TILE_X; ++lx; @inner) {
							const int x = tx * TILE_X + lx;
							const int y = ty * TILE_Y + ly;
							const int z = tz * TILE_Z + lz;
							if (INSIDE(x, y, z)) {
								const int_t i = IDX(x, y, z);
%[2]s
							}
						}
					}
				}
			}
		}
	}
`

const tiledHBody = `
								const real_t ex = s0[lz][ly][lx];
								const real_t ey = s1[lz][ly][lx];
								const real_t ez = s2[lz][ly][lx];
								const real_t cx = (TILE_FWD(s2, Ez, 0, 1, 0) - ez) - (TILE_FWD(s1, Ey, 0, 0, 1) - ey);
								const real_t cy = (TILE_FWD(s0, Ex, 0, 0, 1) - ex) - (TILE_FWD(s2, Ez, 1, 0, 0) - ez);
								const real_t cz = (TILE_FWD(s1, Ey, 1, 0, 0) - ey) - (TILE_FWD(s0, Ex, 0, 1, 0) - ex);
								real_t hx = H_C1[i] * Hx[i] + H_C2[i] * cx;
								real_t hy = H_C1[i] * Hy[i] + H_C2[i] * cy;
								real_t hz = H_C1[i] * Hz[i] + H_C2[i] * cz;
								if (boundary == BOUNDARY_PEC) {
									if (ON_X(x)) hx = REAL_ZERO;
									if (ON_Y(y)) hy = REAL_ZERO;
									if (ON_Z(z)) hz = REAL_ZERO;
								} else {
									if (ON_X(x)) { hy = REAL_ZERO; hz = REAL_ZERO; }
									if (ON_Y(y)) { hx = REAL_ZERO; hz = REAL_ZERO; }
									if (ON_Z(z)) { hx = REAL_ZERO; hy = REAL_ZERO; }
								}
								Hx[i] = hx;
								Hy[i] = hy;
								Hz[i] = hz;`

const tiledEBody = `
								const real_t hx = s0[lz][ly][lx];
								const real_t hy = s1[lz][ly][lx];
								const real_t hz = s2[lz][ly][lx];
								const real_t cx = (hz - TILE_BWD(s2, Hz, 0, 1, 0)) - (hy - TILE_BWD(s1, Hy, 0, 0, 1));
								const real_t cy = (hx - TILE_BWD(s0, Hx, 0, 0, 1)) - (hz - TILE_BWD(s2, Hz, 1, 0, 0));
								const real_t cz = (hy - TILE_BWD(s1, Hy, 1, 0, 0)) - (hx - TILE_BWD(s0, Hx, 0, 1, 0));
								real_t ex = E_C1[i] * Ex[i] - E_C2[i] * cx;
								real_t ey = E_C1[i] * Ey[i] - E_C2[i] * cy;
								real_t ez = E_C1[i] * Ez[i] - E_C2[i] * cz;
								if (boundary == BOUNDARY_PEC) {
									if (ON_X(x)) { ey = REAL_ZERO; ez = REAL_ZERO; }
									if (ON_Y(y)) { ex = REAL_ZERO; ez = REAL_ZERO; }
									if (ON_Z(z)) { ex = REAL_ZERO; ey = REAL_ZERO; }
								} else {
									if (ON_X(x)) ex = REAL_ZERO;
									if (ON_Y(y)) ey = REAL_ZERO;
									if (ON_Z(z)) ez = REAL_ZERO;
								}
								Ex[i] = ex;
								Ey[i] = ey;
								Ez[i] = ez;`

// injectSource adds amount·Inj·dt to one component over a box. Arguments:
// kernel name, signature, field array, injection array.
const injectSource = `
@kernel void %[1]s(
	%[2]s
) {
	for (int lz = 0; lz < sz; ++lz; @outer) {
		for (int ly = 0; ly < sy; ++ly; @inner) {
			for (int lx = 0; lx < sx; ++lx) {
				const int x = x0 + lx;
				const int y = y0 + ly;
				const int z = z0 + lz;
				if (INSIDE(x, y, z)) {
					const int_t i = IDX(x, y, z);
					%[3]s[i] += (amount * %[4]s[i]) * dt;
				}
			}
		}
	}
}
`
