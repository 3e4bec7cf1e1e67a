package view

import (
	"net/http"

	"github.com/labstack/echo/v4"
	g "maragu.dev/gomponents"
	c "maragu.dev/gomponents/components"
	h "maragu.dev/gomponents/html"
)

const (
	htmxSrc    = "https://unpkg.com/htmx.org@2.0.4"
	stylesheet = "/static/roster.css"
)

// Page wraps body in the shared document layout with any pending flashes.
func Page(title string, flashes Flashes, body ...g.Node) g.Node {
	return c.HTML5(c.HTML5Props{
		Title:    title + " | Roster",
		Language: "en",
		Head: []g.Node{
			h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
			h.Link(h.Rel("stylesheet"), h.Href(stylesheet)),
			h.Script(h.Src(htmxSrc), h.Defer()),
		},
		Body: []g.Node{
			h.Class("bg-gray-50 text-gray-900"),
			h.Main(
				h.Class("container mx-auto p-6"),
				flashList(flashes),
				g.Group(body),
			),
		},
	})
}

func flashList(f Flashes) g.Node {
	if len(f.Success) == 0 && len(f.Error) == 0 {
		return nil
	}
	return h.Div(
		h.ID("flashes"),
		g.Map(f.Success, func(msg string) g.Node {
			return h.Div(h.Class("p-3 mb-2 rounded bg-green-100 text-green-800"), h.Role("status"), g.Text(msg))
		}),
		g.Map(f.Error, func(msg string) g.Node {
			return h.Div(h.Class("p-3 mb-2 rounded bg-red-100 text-red-800"), h.Role("alert"), g.Text(msg))
		}),
	)
}

// Render writes node as an HTML response.
func Render(ctx echo.Context, status int, node g.Node) error {
	ctx.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	ctx.Response().WriteHeader(status)
	return node.Render(ctx.Response().Writer)
}

// RenderOK renders node with status 200.
func RenderOK(ctx echo.Context, node g.Node) error {
	return Render(ctx, http.StatusOK, node)
}
