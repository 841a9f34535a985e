package commands

import (
	"image"
	"image/color"
)

// fitWithin returns the largest size with the aspect ratio of w x h whose
// longer edge is at most maxEdge. Sizes already inside the box are returned
// unchanged and no edge drops below one pixel.
func fitWithin(w, h, maxEdge int) (int, int) {
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return w, h
	}
	if w >= h {
		return maxEdge, max(1, int(float64(h)*float64(maxEdge)/float64(w)))
	}
	return max(1, int(float64(w)*float64(maxEdge)/float64(h))), maxEdge
}

// downscale resamples img with nearest neighbour so its longer edge is at
// most maxEdge. img is returned as is when no resampling is needed.
func downscale(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	dstW, dstH := fitWithin(srcW, srcH, maxEdge)
	if dstW == srcW && dstH == srcH {
		return img
	}

	xMap := buildIndexMap(srcW, dstW, bounds.Min.X)
	yMap := buildIndexMap(srcH, dstH, bounds.Min.Y)

	dst := createTargetCanvas(dstW, dstH, color.White)
	parallelRows(dstH, func(y int) {
		sy := yMap[y]
		for x := 0; x < dstW; x++ {
			dst.Set(x, y, img.At(xMap[x], sy))
		}
	})
	return dst
}

// buildIndexMap maps each destination coordinate to its source coordinate
func buildIndexMap(srcLen, dstLen, origin int) []int {
	m := make([]int, dstLen)
	for i := range m {
		s := int(float64(i) * float64(srcLen) / float64(dstLen))
		if s >= srcLen {
			s = srcLen - 1
		}
		m[i] = origin + s
	}
	return m
}
