package view

// Camera translates between grid coordinates and screen cells. One tile
// occupies one terminal column.
type Camera struct {
	OffsetX    int
	OffsetY    int
	ViewWidth  int // in terminal columns
	ViewHeight int // in terminal rows
}

// NewCamera creates a camera at the grid origin
func NewCamera(viewW, viewH int) *Camera {
	return &Camera{ViewWidth: viewW, ViewHeight: viewH}
}

// Resize changes the viewport and keeps the offset inside the world
func (c *Camera) Resize(viewW, viewH, worldW, worldH int) {
	c.ViewWidth = viewW
	c.ViewHeight = viewH
	c.clamp(worldW, worldH)
}

// Center repositions the camera so that (cx, cy) is in the middle
func (c *Camera) Center(cx, cy, worldW, worldH int) {
	c.OffsetX = cx - c.ViewWidth/2
	c.OffsetY = cy - c.ViewHeight/2
	c.clamp(worldW, worldH)
}

// Pan moves the viewport by (dx, dy) tiles without leaving the world
func (c *Camera) Pan(dx, dy, worldW, worldH int) {
	c.OffsetX += dx
	c.OffsetY += dy
	c.clamp(worldW, worldH)
}

func (c *Camera) clamp(worldW, worldH int) {
	c.OffsetX = clampAxis(c.OffsetX, worldW, c.ViewWidth)
	c.OffsetY = clampAxis(c.OffsetY, worldH, c.ViewHeight)
}

func clampAxis(offset, world, view int) int {
	limit := world - view
	if limit < 0 {
		limit = 0
	}
	if offset > limit {
		offset = limit
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// WorldToScreen converts grid (wx, wy) to screen (sx, sy).
// visible is false when the result falls outside the viewport.
func (c *Camera) WorldToScreen(wx, wy int) (sx, sy int, visible bool) {
	sx = wx - c.OffsetX
	sy = wy - c.OffsetY
	visible = sx >= 0 && sx < c.ViewWidth && sy >= 0 && sy < c.ViewHeight
	return
}

// ScreenToWorld converts screen (sx, sy) to grid coordinates
func (c *Camera) ScreenToWorld(sx, sy int) (int, int) {
	return sx + c.OffsetX, sy + c.OffsetY
}
