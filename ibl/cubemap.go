package ibl

import (
	"envlight/libgpu"

	"github.com/chewxy/math32"
)

// Based on: https://www.gamedev.net/forums/topic/687535-implementing-a-cube-map-lookup-function/5337472/
// Cube map face reference: https://www.khronos.org/opengl/wiki_opengl/images/CubeMapAxes.png
func CubeMapUV(rx, ry, rz float32) (face libgpu.CubeFace, u, v float32) {
	ax := math32.Abs(rx)
	ay := math32.Abs(ry)
	az := math32.Abs(rz)

	// this normalizes the uvs
	var uvfac float32

	if ax >= ay && ax >= az {
		if rx >= 0 {
			face = libgpu.FacePositiveX
			u = -rz
		} else {
			face = libgpu.FaceNegativeX
			u = rz
		}
		uvfac = 0.5 / ax
		v = -ry
	} else if ay >= ax && ay >= az {
		if ry >= 0 {
			face = libgpu.FacePositiveY
			v = rz
		} else {
			face = libgpu.FaceNegativeY
			v = -rz
		}
		uvfac = 0.5 / ay
		u = rx
	} else {
		if rz >= 0 {
			face = libgpu.FacePositiveZ
			u = rx
		} else {
			face = libgpu.FaceNegativeZ
			u = -rx
		}
		uvfac = 0.5 / az
		v = -ry
	}

	u = u*uvfac + 0.5
	v = v*uvfac + 0.5

	return
}

// CubeMapDirection is the inverse of CubeMapUV. The result is not normalized.
func CubeMapDirection(face libgpu.CubeFace, u, v float32) (x, y, z float32) {
	sc := 2*u - 1
	tc := 2*v - 1
	switch face {
	case libgpu.FacePositiveX:
		return 1, -tc, -sc
	case libgpu.FaceNegativeX:
		return -1, -tc, sc
	case libgpu.FacePositiveY:
		return sc, 1, tc
	case libgpu.FaceNegativeY:
		return sc, -1, -tc
	case libgpu.FacePositiveZ:
		return sc, -tc, 1
	default:
		return -sc, -tc, -1
	}
}

// TexelDirection returns the normalized direction through the center of a texel.
func TexelDirection(face libgpu.CubeFace, x, y, size int) (float32, float32, float32) {
	u := (float32(x) + 0.5) / float32(size)
	v := (float32(y) + 0.5) / float32(size)
	return normalize(CubeMapDirection(face, u, v))
}

// 1/(2pi), 1/pi
var invAtan [2]float32 = [2]float32{0.15915494309, 0.31830988618}

// LatLongUV maps a normalized direction to equirectangular coordinates, v = 1 is +Y.
func LatLongUV(rx, ry, rz float32) (u, v float32) {
	u, v = math32.Atan2(rz, rx), math32.Asin(math32.Max(-1, math32.Min(1, ry)))
	u = u*invAtan[0] + 0.5
	v = v*invAtan[1] + 0.5
	return u, v
}

// LatLongDirection is the inverse of LatLongUV.
func LatLongDirection(u, v float32) (x, y, z float32) {
	phi := (u - 0.5) * 2 * math32.Pi
	lat := (v - 0.5) * math32.Pi
	cl := math32.Cos(lat)
	return cl * math32.Cos(phi), math32.Sin(lat), cl * math32.Sin(phi)
}

func sampleBilinear(w, h int, channels int, pix []float32, u, v float32) (r, g, b float32) {
	// -0.5 to adjust for the pixel center offset
	u = u*float32(w) - 0.5
	v = v*float32(h) - 0.5
	ufloor, ufrac := math32.Modf(u)
	vfloor, vfrac := math32.Modf(v)
	ufloori, vfloori := int(ufloor), int(vfloor)
	if ufrac < 0 {
		ufloori--
		ufrac += 1
	}
	if vfrac < 0 {
		vfloori--
		vfrac += 1
	}
	uceili, vceili := ufloori+1, vfloori+1

	if ufloori < 0 {
		ufloori = 0
	}
	if vfloori < 0 {
		vfloori = 0
	}
	if uceili >= w {
		uceili = w - 1
	}
	if ufloori >= uceili {
		ufloori = uceili
		ufrac = 0.0
	}
	if vceili >= h {
		vceili = h - 1
	}
	if vfloori >= vceili {
		vfloori = vceili
		vfrac = 0.0
	}

	rowstride := channels * w

	o00 := vfloori*rowstride + ufloori*channels
	o10 := vfloori*rowstride + uceili*channels
	o01 := vceili*rowstride + ufloori*channels
	o11 := vceili*rowstride + uceili*channels

	if channels == 1 {
		rh0 := pix[o00]*(1.0-ufrac) + pix[o10]*ufrac
		rh1 := pix[o01]*(1.0-ufrac) + pix[o11]*ufrac
		r = rh0*(1.0-vfrac) + rh1*vfrac
		return r, r, r
	}

	rh0 := pix[o00+0]*(1.0-ufrac) + pix[o10+0]*ufrac
	gh0 := pix[o00+1]*(1.0-ufrac) + pix[o10+1]*ufrac
	bh0 := pix[o00+2]*(1.0-ufrac) + pix[o10+2]*ufrac

	rh1 := pix[o01+0]*(1.0-ufrac) + pix[o11+0]*ufrac
	gh1 := pix[o01+1]*(1.0-ufrac) + pix[o11+1]*ufrac
	bh1 := pix[o01+2]*(1.0-ufrac) + pix[o11+2]*ufrac

	return rh0*(1.0-vfrac) + rh1*vfrac, gh0*(1.0-vfrac) + gh1*vfrac, bh0*(1.0-vfrac) + bh1*vfrac
}

// SampleCube reads a software cube texture bilinearly within a face and linearly between mips.
func SampleCube(tex *libgpu.SwTexture, rx, ry, rz, lod float32) (r, g, b float32) {
	face, u, v := CubeMapUV(rx, ry, rz)
	lod = math32.Max(0, math32.Min(lod, float32(tex.Levels()-1)))
	lo := int(lod)
	frac := lod - float32(lo)

	r, g, b = sampleLevel(tex, face, lo, u, v)
	if frac > 0 && lo+1 < tex.Levels() {
		r1, g1, b1 := sampleLevel(tex, face, lo+1, u, v)
		r = r*(1-frac) + r1*frac
		g = g*(1-frac) + g1*frac
		b = b*(1-frac) + b1*frac
	}
	return
}

// Sample2D reads a software 2D texture bilinearly from mip 0.
func Sample2D(tex *libgpu.SwTexture, u, v float32) (r, g, b float32) {
	return sampleLevel(tex, 0, 0, u, v)
}

func sampleLevel(tex *libgpu.SwTexture, face libgpu.CubeFace, mip int, u, v float32) (r, g, b float32) {
	w, h := tex.Size(mip)
	return sampleBilinear(w, h, tex.Channels(), tex.Level(face, mip), u, v)
}

func Luminance(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func normalize(x, y, z float32) (float32, float32, float32) {
	len := math32.Sqrt(x*x + y*y + z*z)
	return x / len, y / len, z / len
}

func cross(ax, ay, az, bx, by, bz float32) (float32, float32, float32) {
	x := ay*bz - az*by
	y := az*bx - ax*bz
	z := ax*by - ay*bx
	return x, y, z
}

func dot(ax, ay, az, bx, by, bz float32) float32 {
	return ax*bx + ay*by + az*bz
}

func transform(vx, vy, vz, xx, xy, xz, yx, yy, yz, zx, zy, zz float32) (float32, float32, float32) {
	x := (vx * xx) + (vy * yx) + (vz * zx)
	y := (vx * xy) + (vy * yy) + (vz * zy)
	z := (vx * xz) + (vy * yz) + (vz * zz)
	return x, y, z
}

// tangentFrame builds an orthonormal basis around n.
func tangentFrame(nx, ny, nz float32) (tx, ty, tz, bx, by, bz float32) {
	var upx, upy, upz float32 = 0.0, 0.0, 1.0
	if math32.Abs(nz) >= 0.999 {
		upx, upy, upz = 1.0, 0.0, 0.0
	}
	tx, ty, tz = normalize(cross(upx, upy, upz, nx, ny, nz))
	bx, by, bz = cross(nx, ny, nz, tx, ty, tz)
	return
}
