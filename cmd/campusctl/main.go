// campusctl is the terminal client for the campus food ordering
// platform. It owns the session file, binds realtime rooms for the
// logged-in identity, runs the onboarding wizard and walks every
// navigation through the router guard, exactly as the web client does.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/campuseats/campuseats/internal/api"
	"github.com/campuseats/campuseats/internal/config"
	"github.com/campuseats/campuseats/internal/guard"
	"github.com/campuseats/campuseats/internal/logx"
	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/navigation"
	"github.com/campuseats/campuseats/internal/realtime"
	"github.com/campuseats/campuseats/internal/session"
	"github.com/campuseats/campuseats/internal/storage"
	"github.com/campuseats/campuseats/internal/wizard"
)

type app struct {
	cfg     config.ClientConfig
	session *session.Store
	client  *api.Client
	binder  *realtime.Binder
	guard   *guard.Guard
	nav     *navigation.Memory
	in      *bufio.Scanner
}

func main() {
	_ = godotenv.Load()
	cfg := config.LoadClient()
	logger := logx.New(logx.Config{Service: "campusctl", Level: cfg.LogLevel, Format: cfg.LogFormat})

	var store storage.Store
	if cfg.RedisAddr != "" {
		if rdb := config.NewRedisClientAddr(cfg.RedisAddr); rdb != nil {
			store = storage.NewRedisStore(rdb, "campusctl")
		}
	}
	if store == nil {
		store = storage.NewFileStore(cfg.StoragePath)
	}

	sess := session.NewStore(store, logger)
	sess.SetNoticeFunc(func(msg string) { fmt.Println("! " + msg) })

	transport := &realtime.AMQPTransport{
		URL:      cfg.AMQPURL,
		Exchange: cfg.EventExchange,
		Log:      logger,
	}
	binder := realtime.NewBinder(transport, logger)
	for _, ev := range []string{
		realtime.EventStockChanged,
		realtime.EventCanteenStatus,
		realtime.EventOrderCreated,
		realtime.EventOrderStatus,
		realtime.EventPaymentStatus,
		realtime.EventItemUpserted,
	} {
		event := ev
		binder.On(event, func(_ string, payload []byte) {
			fmt.Printf("* %s %s\n", event, payload)
		})
	}
	unsubscribe := sess.Subscribe(binder.OnIdentityChanged)
	defer unsubscribe()
	defer binder.Close()

	a := &app{
		cfg:     cfg,
		session: sess,
		client:  api.New(cfg.APIBaseURL, sess, logger),
		binder:  binder,
		guard:   guard.New(sess),
		nav:     navigation.NewMemory(guard.PathLanding),
		in:      bufio.NewScanner(os.Stdin),
	}

	ctx := context.Background()
	sess.Restore(ctx)
	if id := sess.Identity(); id != nil {
		fmt.Printf("welcome back, %s (%s)\n", id.Name, id.Role)
	}
	a.navigate(a.homePath())

	a.repl(ctx)
}

// navigate walks the guard until it allows a destination, following
// redirects the way a browser router would.
func (a *app) navigate(path string) {
	for i := 0; i < 10; i++ {
		out := a.guard.Decide(path)
		switch out.Action {
		case guard.ActionAllow:
			a.nav.RedirectTo(path)
			fmt.Printf("@ %s\n", path)
			return
		case guard.ActionRedirect:
			path = out.Target
		case guard.ActionLoading:
			fmt.Println("@ loading")
			return
		}
	}
	fmt.Println("! redirect loop, staying put")
}

func (a *app) homePath() string {
	if id := a.session.Identity(); id != nil {
		return guard.RoleHome(id.Role)
	}
	return guard.PathLanding
}

func (a *app) repl(ctx context.Context) {
	fmt.Println("campusctl ready; type 'help'")
	for {
		fmt.Print("> ")
		if !a.in.Scan() {
			return
		}
		args := strings.Fields(a.in.Text())
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println(`login <email> <password> | register <name> <email> <password> <role>
otp <email> | verify <email> <code> | me | logout
colleges | canteens <collegeID> | menu <canteenID>
order <canteenID> <itemID>x<qty> ... | orders
canteen-orders | set-status <orderID> <STATUS> | open | close
wizard | go <path> | quit`)
		case "quit", "exit":
			return
		case "login":
			if len(args) != 3 {
				fmt.Println("usage: login <email> <password>")
				continue
			}
			a.finishAuth(ctx)(a.client.LoginPassword(ctx, args[1], args[2]))
		case "register":
			if len(args) != 5 {
				fmt.Println("usage: register <name> <email> <password> <role>")
				continue
			}
			a.finishAuth(ctx)(a.client.Register(ctx, args[1], args[2], args[3], model.Role(args[4])))
		case "otp":
			if len(args) != 2 {
				fmt.Println("usage: otp <email>")
				continue
			}
			if err := a.client.RequestOTP(ctx, args[1]); err != nil {
				fmt.Println("! " + err.Error())
			} else {
				fmt.Println("code sent; verify <email> <code>")
			}
		case "verify":
			if len(args) != 3 {
				fmt.Println("usage: verify <email> <code>")
				continue
			}
			a.finishAuth(ctx)(a.client.VerifyOTP(ctx, args[1], args[2]))
		case "me":
			id, err := a.client.Me(ctx)
			if err != nil {
				fmt.Println("! " + err.Error())
				continue
			}
			printJSON(id)
		case "logout":
			if cred, ok := a.session.Credential(); ok {
				_ = a.client.ServerLogout(ctx, cred.RefreshToken)
			}
			a.session.Logout(ctx)
			a.navigate(guard.PathLanding)
		case "colleges":
			list, err := a.client.Colleges(ctx)
			a.printList(list, err)
		case "canteens":
			id := parseID(args, 1)
			list, err := a.client.Canteens(ctx, id)
			a.printList(list, err)
		case "menu":
			id := parseID(args, 1)
			list, err := a.client.Menu(ctx, id)
			a.printList(list, err)
		case "order":
			a.placeOrder(ctx, args[1:])
		case "orders":
			list, err := a.client.MyOrders(ctx)
			a.printList(list, err)
		case "canteen-orders":
			list, err := a.client.CanteenOrders(ctx)
			a.printList(list, err)
		case "set-status":
			if len(args) != 3 {
				fmt.Println("usage: set-status <orderID> <STATUS>")
				continue
			}
			order, err := a.client.SetOrderStatus(ctx, parseID(args, 1), model.OrderStatus(args[2]))
			if err != nil {
				fmt.Println("! " + err.Error())
				continue
			}
			printJSON(order)
		case "open", "close":
			if err := a.client.SetCanteenOpen(ctx, args[0] == "open"); err != nil {
				fmt.Println("! " + err.Error())
			}
		case "wizard":
			a.runWizard(ctx)
		case "go":
			if len(args) == 2 {
				a.navigate(args[1])
			}
		default:
			fmt.Println("unknown command; type 'help'")
		}
	}
}

// finishAuth installs a fresh identity/credential pair in the session
// and navigates to wherever the guard sends this identity.
func (a *app) finishAuth(ctx context.Context) func(model.Identity, model.Credential, error) {
	return func(id model.Identity, cred model.Credential, err error) {
		if err != nil {
			fmt.Println("! " + err.Error())
			return
		}
		if err := a.session.Login(ctx, id, cred); err != nil {
			fmt.Println("! " + err.Error())
			return
		}
		fmt.Printf("logged in as %s (%s)\n", id.Name, id.Role)
		a.navigate(guard.RoleHome(id.Role))
	}
}

func (a *app) placeOrder(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: order <canteenID> <itemID>x<qty> ...")
		return
	}
	canteenID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Println("! invalid canteen id")
		return
	}
	var lines []api.OrderLineInput
	for _, spec := range args[1:] {
		parts := strings.SplitN(spec, "x", 2)
		itemID, err1 := strconv.ParseUint(parts[0], 10, 64)
		qty := 1
		var err2 error
		if len(parts) == 2 {
			qty, err2 = strconv.Atoi(parts[1])
		}
		if err1 != nil || err2 != nil || qty < 1 {
			fmt.Println("! invalid line " + spec)
			return
		}
		lines = append(lines, api.OrderLineInput{ItemID: itemID, Qty: qty})
	}
	order, err := a.client.PlaceOrder(ctx, canteenID, lines)
	if err != nil {
		fmt.Println("! " + err.Error())
		return
	}
	printJSON(order)
}

// runWizard drives the onboarding flow for the current identity,
// resuming from the server-side progress record.
func (a *app) runWizard(ctx context.Context) {
	id := a.session.Identity()
	if id == nil {
		fmt.Println("! log in first")
		return
	}
	if id.OnboardingCompleted || id.Role == model.RoleAdmin {
		fmt.Println("nothing to do")
		return
	}

	prog, err := a.client.Progress(ctx)
	if err != nil {
		fmt.Println("! " + err.Error())
		return
	}

	deps := wizard.Deps{Saver: a.client, Session: a.session, Nav: a.nav}
	var steps []wizard.Step
	studentForm := &wizard.StudentForm{}
	canteenForm := &wizard.CanteenForm{}
	if id.Role == model.RoleCanteenOwner {
		steps = wizard.CanteenSteps(deps, canteenForm)
	} else {
		steps = wizard.StudentSteps(deps, studentForm)
	}

	ctl, err := resumeController(steps, prog)
	if err != nil {
		fmt.Println("! " + err.Error())
		return
	}

	for !ctl.Finished() {
		fmt.Printf("-- step %d/%d: %s\n", ctl.Index()+1, ctl.Len(), ctl.StepName())
		a.fillStep(ctl.StepName(), studentForm, canteenForm)
		if !ctl.CanNext() {
			fmt.Println("! step not valid yet, try again")
			continue
		}
		if err := ctl.Next(ctx); err != nil {
			fmt.Println("! " + err.Error())
		}
	}
	fmt.Println("onboarding complete")
	a.navigate(a.nav.Path())
}

// resumeController positions the wizard at the step the backend
// reports. The router guard redirects to the same step, so the two
// views of the resume point stay in lockstep.
func resumeController(steps []wizard.Step, prog api.Progress) (*wizard.Controller, error) {
	return wizard.NewController(steps, prog.Step, nil)
}

// fillStep prompts for the fields of the named step.
func (a *app) fillStep(name string, sf *wizard.StudentForm, cf *wizard.CanteenForm) {
	switch name {
	case "profile":
		sf.Phone = a.prompt("phone")
		sf.CollegeID = promptID(a.prompt("college id"))
	case "preferences":
		sf.CuisineTags = strings.Split(a.prompt("cuisine tags (comma separated)"), ",")
	case "canteen-profile":
		cf.Phone = a.prompt("phone")
		cf.CollegeID = promptID(a.prompt("college id"))
		cf.CanteenName = a.prompt("canteen name")
	case "payout":
		cf.UPIID = a.prompt("UPI id")
	case "documents":
		cf.Documents = strings.Split(a.prompt("document refs (comma separated)"), ",")
	case "review":
		fmt.Println("press enter to submit")
		a.prompt("")
	}
}

func (a *app) prompt(label string) string {
	if label != "" {
		fmt.Printf("%s: ", label)
	}
	if !a.in.Scan() {
		return ""
	}
	return strings.TrimSpace(a.in.Text())
}

func (a *app) printList(v any, err error) {
	if err != nil {
		fmt.Println("! " + err.Error())
		return
	}
	printJSON(v)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println("! " + err.Error())
		return
	}
	fmt.Println(string(b))
}

func parseID(args []string, i int) uint64 {
	if len(args) <= i {
		return 0
	}
	n, _ := strconv.ParseUint(args[i], 10, 64)
	return n
}

func promptID(s string) uint64 {
	n, _ := strconv.ParseUint(s, 10, 64)
	return n
}
