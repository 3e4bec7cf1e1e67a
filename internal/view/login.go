package view

import (
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

// LoginPage is the sign-in form. email pre-fills the form after a failed
// attempt.
func LoginPage(email string, flashes Flashes) g.Node {
	return Page("Sign in", flashes,
		h.Div(
			h.Class("max-w-sm mx-auto bg-white shadow rounded-xl p-8"),
			h.H1(h.Class("text-2xl font-bold mb-6"), g.Text("Sign in")),
			h.Form(
				h.Method("post"), h.Action("/auth/login"),
				h.Class("space-y-4"),
				field("email", "Email", "email", email),
				field("password", "Password", "password", ""),
				h.Button(h.Type("submit"), h.Class("w-full py-2 rounded bg-indigo-600 text-white"), g.Text("Sign in")),
			),
		),
	)
}

func field(name, label, typ, value string) g.Node {
	return h.Div(
		h.Label(h.For(name), h.Class("block text-sm mb-1"), g.Text(label)),
		h.Input(h.ID(name), h.Name(name), h.Type(typ), h.Required(), h.Class("w-full border rounded p-2"),
			g.If(value != "", h.Value(value))),
	)
}
