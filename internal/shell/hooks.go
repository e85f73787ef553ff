package shell

import (
	"context"
	"fmt"
	"strconv"

	"github.com/agendai/agendai-go/internal/clientstore"
	"github.com/agendai/agendai-go/internal/domain"
	"github.com/agendai/agendai-go/internal/viewloader"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CompanySource lists the reconciled companies.
type CompanySource interface {
	Companies(ctx context.Context) ([]domain.Company, error)
}

// Hooks returns the per-view initializers that fill the admin views from
// local data once they are mounted.
func Hooks(companies CompanySource, store *clientstore.Store) []viewloader.Option {
	return []viewloader.Option{
		viewloader.WithHook("admin-dashboard", func(ctx context.Context, v *viewloader.View) error {
			list, err := companies.Companies(ctx)
			if err != nil {
				return fmt.Errorf("companies: %w", err)
			}
			plans, err := clientstore.Get[domain.Plan](ctx, store, clientstore.KeyPlans)
			if err != nil {
				return fmt.Errorf("plans: %w", err)
			}
			setStat(v.Body, "companies", len(list))
			setStat(v.Body, "plans", len(plans))
			return nil
		}),
		viewloader.WithHook("admin-companies", func(ctx context.Context, v *viewloader.View) error {
			list, err := companies.Companies(ctx)
			if err != nil {
				return fmt.Errorf("companies: %w", err)
			}
			rows := make([][]string, 0, len(list))
			for _, c := range list {
				rows = append(rows, []string{c.Name, c.CNPJ, c.PlanName, c.Status})
			}
			return fillTable(v, "companies-table", rows)
		}),
		viewloader.WithHook("admin-plans", func(ctx context.Context, v *viewloader.View) error {
			plans, err := clientstore.Get[domain.Plan](ctx, store, clientstore.KeyPlans)
			if err != nil {
				return fmt.Errorf("plans: %w", err)
			}
			rows := make([][]string, 0, len(plans))
			for _, p := range plans {
				rows = append(rows, []string{p.Name, strconv.FormatFloat(p.Price, 'f', 2, 64), p.Status})
			}
			return fillTable(v, "plans-table", rows)
		}),
	}
}

func fillTable(v *viewloader.View, id string, rows [][]string) error {
	table := v.Find(id)
	if table == nil {
		return fmt.Errorf("table %s not in view", id)
	}
	tbody := firstChild(table, atom.Tbody)
	if tbody == nil {
		tbody = &html.Node{Type: html.ElementNode, Data: "tbody", DataAtom: atom.Tbody}
		table.AppendChild(tbody)
	}
	for c := tbody.FirstChild; c != nil; {
		next := c.NextSibling
		tbody.RemoveChild(c)
		c = next
	}
	for _, row := range rows {
		tr := &html.Node{Type: html.ElementNode, Data: "tr", DataAtom: atom.Tr}
		for _, cell := range row {
			td := &html.Node{Type: html.ElementNode, Data: "td", DataAtom: atom.Td}
			td.AppendChild(&html.Node{Type: html.TextNode, Data: cell})
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}
	return nil
}

func setStat(n *html.Node, name string, value int) {
	if n == nil {
		return
	}
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "data-stat" && a.Val == name {
				for c := n.FirstChild; c != nil; {
					next := c.NextSibling
					n.RemoveChild(c)
					c = next
				}
				n.AppendChild(&html.Node{Type: html.TextNode, Data: strconv.Itoa(value)})
				return
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		setStat(c, name, value)
	}
}

func firstChild(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}
