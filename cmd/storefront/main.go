package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/app"
	"github.com/Illuminatus66/byqr/internal/catalog"
	"github.com/Illuminatus66/byqr/internal/config"
	"github.com/Illuminatus66/byqr/internal/model"
	"github.com/Illuminatus66/byqr/internal/order"
	"github.com/Illuminatus66/byqr/internal/persist"
	"github.com/Illuminatus66/byqr/internal/wishlist"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

const usage = `usage: storefront <command> [args]

  signup <name> <email> <password> <phone>
  login <email> <password>
  logout
  whoami
  products [sort] [category|brand...]   sort: price_ascending|price_descending|alphabetical|new|old
  near <product_id> <lat> <long>
  cart [add <id> <qty> | set <id> <qty> | rm <id>]
  wishlist [add <id> | rm <id> | move <id>]
  compare [add <id> | rm <id>... | clear]
  orders [newest|oldest]
  checkout
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("BYQR_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := kit.NewLoggerAt(cfg.Log.Service, cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, cmd string, args []string) error {
	store, err := persist.Open(ctx, cfg.PersistOptions())
	if err != nil {
		return err
	}

	a := app.New(app.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		TTL:     cfg.Session.TTL,
		Store:   store,
		Log:     log,
	})
	defer func() { _ = a.Close() }()

	if err := a.Restore(ctx); err != nil {
		return err
	}
	if _, err := a.Catalog.Refresh(ctx); err != nil {
		log.Warn("catalog unavailable", zap.Error(err))
	}

	switch cmd {
	case "signup":
		if len(args) != 4 {
			return errors.New(usage)
		}
		s, err := a.Signup(ctx, model.Registration{Name: args[0], Email: args[1], Password: args[2], Phone: args[3]})
		if err != nil && s.Token == "" {
			return err
		}
		fmt.Printf("signed up as %s (%s)\n", s.Profile.Name, s.Profile.Email)
		return err

	case "login":
		if len(args) != 2 {
			return errors.New(usage)
		}
		s, err := a.Login(ctx, model.Credentials{Email: args[0], Password: args[1]})
		if err != nil && s.Token == "" {
			return err
		}
		fmt.Printf("signed in as %s\n", s.Profile.Name)
		return err

	case "logout":
		a.Logout(ctx)
		fmt.Println("signed out")
		return nil

	case "whoami":
		st := a.Session.Status()
		if st.Session == nil {
			fmt.Println("anonymous")
			return nil
		}
		p := st.Session.Profile
		fmt.Printf("%s <%s> %s\n", p.Name, p.Email, p.Phone)
		for _, addr := range p.Addresses {
			fmt.Println("  ", addr)
		}
		return nil

	case "products":
		return products(a, args)

	case "near":
		return near(a, args)

	case "cart":
		return cartCmd(ctx, a, args)

	case "wishlist":
		return wishlistCmd(ctx, a, args)

	case "compare":
		return compareCmd(ctx, a, args)

	case "orders":
		dir := order.NewestFirst
		if len(args) > 0 && args[0] == "oldest" {
			dir = order.OldestFirst
		}
		if _, err := a.Orders.Hydrate(ctx, ""); err != nil {
			return err
		}
		for _, g := range order.ByYear(order.Sorted(a.Orders.List(), dir)) {
			fmt.Println(g.Year)
			for _, o := range g.Orders {
				fmt.Printf("  %s  %s  %s  %d lines\n", o.CreatedAt.Format("02 Jan"), o.Receipt, o.TotalAmount.StringFixed(2), len(o.Products))
			}
		}
		return nil

	case "checkout":
		return checkout(ctx, a)

	default:
		return errors.New(usage)
	}
}

func products(a *app.App, args []string) error {
	list := a.Catalog.Snapshot().Products()
	if len(args) > 0 {
		list = catalog.Sort(list, catalog.SortOrder(args[0]))
		list = catalog.Filter(list, args[1:]...)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY\tBRAND")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock, p.Category, p.Brand)
	}
	return w.Flush()
}

func near(a *app.App, args []string) error {
	if len(args) != 3 {
		return errors.New(usage)
	}
	lat, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return err
	}
	long, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return err
	}
	outlets, err := a.Catalog.NearestStores(args[0], orb.Point{long, lat}, 5)
	if err != nil {
		return err
	}
	for _, o := range outlets {
		fmt.Printf("%-24s %6.1f km\n", o.Name, o.DistanceMeters/1000)
	}
	return nil
}

func cartCmd(ctx context.Context, a *app.App, args []string) error {
	var err error
	switch {
	case len(args) == 0:
	case args[0] == "add" && len(args) == 3:
		var qty int
		if qty, err = strconv.Atoi(args[2]); err == nil {
			_, err = a.Cart.AddLine(ctx, args[1], qty)
		}
	case args[0] == "set" && len(args) == 3:
		var qty int
		if qty, err = strconv.Atoi(args[2]); err == nil {
			_, err = a.Cart.SetQuantity(ctx, args[1], qty)
		}
	case args[0] == "rm" && len(args) == 2:
		_, err = a.Cart.RemoveLine(ctx, args[1])
	default:
		return errors.New(usage)
	}
	if err != nil {
		return err
	}

	priced := a.PricedCart()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, l := range priced.Lines {
		if !l.Available {
			fmt.Fprintf(w, "%s\t(unavailable)\tx%d\t-\n", l.ProductID, l.Quantity)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\tx%d\t%s\n", l.ProductID, l.Product.Name, l.Quantity, l.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(w, "\t\tTOTAL\t%s\n", priced.Total.StringFixed(2))
	return w.Flush()
}

func wishlistCmd(ctx context.Context, a *app.App, args []string) error {
	var err error
	switch {
	case len(args) == 0:
	case args[0] == "add" && len(args) == 2:
		_, err = a.Wishlist.Add(ctx, args[1])
	case args[0] == "rm" && len(args) == 2:
		_, err = a.Wishlist.Remove(ctx, args[1])
	case args[0] == "move" && len(args) == 2:
		var out wishlist.MoveOutcome
		out, err = a.MoveToCart(ctx, args[1])
		fmt.Println("move:", out)
	default:
		return errors.New(usage)
	}
	if err != nil {
		return err
	}

	for _, p := range wishlist.Resolve(a.Wishlist.IDs(), a.Catalog) {
		fmt.Printf("%s  %s  %s\n", p.ID, p.Name, p.Price.StringFixed(2))
	}
	if dups := a.Wishlist.Duplicates(); len(dups) > 0 {
		fmt.Println("in both cart and wishlist:", strings.Join(dups, ", "))
	}
	return nil
}

func compareCmd(ctx context.Context, a *app.App, args []string) error {
	switch {
	case len(args) == 0:
	case args[0] == "add" && len(args) == 2:
		if !a.Compare.Add(ctx, args[1]) {
			fmt.Println("not added: already present or comparison is full")
		}
	case args[0] == "rm" && len(args) >= 2:
		a.Compare.Remove(ctx, args[1:]...)
	case args[0] == "clear":
		a.Compare.Clear(ctx)
	default:
		return errors.New(usage)
	}

	ids := a.Compare.IDs()
	if !a.Compare.CanCompare() {
		fmt.Printf("%d selected: pick 2 or 3 bikes to compare\n", len(ids))
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tPRICE\tFRAME\tWEIGHT\tGEARS\tBRAKES\tSUSPENSION")
	for _, id := range ids {
		p, ok := a.Catalog.Lookup(id)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\t%s\t%s\n",
			p.Name, p.Price.StringFixed(2), p.FrameMaterial, p.Weight, p.GearSystem, p.BrakeType, p.Suspension)
	}
	return w.Flush()
}

func checkout(ctx context.Context, a *app.App) error {
	co, err := a.BeginCheckout(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("pay %s with gateway key %s, order %s\n", co.Total.StringFixed(2), co.Intent.Key, co.Intent.OrderID)
	fmt.Print("payment id and signature: ")

	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return errors.New("payment not confirmed")
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != 2 {
		return errors.New("expected <payment_id> <signature>")
	}

	o, err := a.CompleteCheckout(ctx, co, app.PaymentConfirmation{PaymentID: fields[0], Signature: fields[1]})
	if err != nil && o.Receipt == "" {
		return err
	}
	fmt.Printf("order %s recorded, total %s\n", o.Receipt, o.TotalAmount.StringFixed(2))
	return err
}
