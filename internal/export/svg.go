// Package export renders scenes to static images.
package export

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/world"
)

var materialColors = [kind.NumMaterials]string{
	"#b0c4de", // metal
	"#c08040", // wood
	"#6b4f2a", // soil
	"#40c0c0", // conveyor
	"#e040e0", // bouncy goo
	"#5a5a30", // sticky mud
}

var shapeColors = [kind.NumShapes]string{"#ffcc00", "#00ff88", "#ff4466"}

// SceneToSVG draws s on a canvas of width by height pixels. Stroke points
// are already pixels; every other position goes through c.
func SceneToSVG(s *world.Scene, c world.Config, width, height int) string {
	if s == nil {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for _, st := range s.Strokes {
		if len(st.Points) < 2 || !st.Material.Valid() {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<polyline fill="none" stroke="%s" stroke-width="4" stroke-linecap="round" points="`,
			materialColors[st.Material]))
		for i, p := range st.Points {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", p[0], p[1]))
		}
		sb.WriteString("\"/>\n")
	}

	for _, f := range s.Forces {
		p := c.WorldToPixel(f.Position.Vec())
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="12" fill="none" stroke="#8888ff" stroke-dasharray="4 3"/>
`, p.X(), p.Y()))
	}

	for _, e := range s.Emitters {
		p := c.WorldToPixel(e.Position.Vec())
		color := "#ffffff"
		if e.Kind.Valid() {
			color = shapeColors[e.Kind]
		}
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="10" height="10" fill="none" stroke="%s"/>
`, p.X()-5, p.Y()-5, color))
	}

	for _, o := range s.Objects {
		if !o.Kind.Valid() {
			continue
		}
		writeObject(&sb, c, o)
	}

	sp := c.WorldToPixel(s.SpawnPoint.Vec())
	sb.WriteString(fmt.Sprintf(`<path stroke="#ffffff" d="M%.1f,%.1f h12 M%.1f,%.1f v12"/>
`, sp.X()-6, sp.Y(), sp.X(), sp.Y()-6))

	sb.WriteString("</svg>")
	return sb.String()
}

func writeObject(sb *strings.Builder, c world.Config, o world.ObjectState) {
	color := shapeColors[o.Kind]
	center := o.Position.Vec()
	radius, verts := o.Radius, make([]mgl64.Vec2, len(o.Vertices))
	for i, v := range o.Vertices {
		verts[i] = v.Vec()
	}
	if radius == 0 && len(verts) == 0 {
		radius, verts = world.ShapeGeometry(o.Kind)
	}

	if len(verts) == 0 {
		p := c.WorldToPixel(center)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, p.X(), p.Y(), radius*c.PixelsPerMeter, color))
		return
	}

	rot := mgl64.Rotate2D(o.Angle)
	sb.WriteString(`<polygon fill="` + color + `" points="`)
	for i, v := range verts {
		p := c.WorldToPixel(center.Add(rot.Mul2x1(v)))
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf("%.1f,%.1f", p.X(), p.Y()))
	}
	sb.WriteString("\"/>\n")
}
