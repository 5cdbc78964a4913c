package backend_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/backend"
	"github.com/Illuminatus66/byqr/internal/model"
)

const (
	jwtSecret     = "test-secret"
	paymentSecret = "pay-secret"
)

func newBackendTS(t *testing.T) *httptest.Server {
	t.Helper()

	s := &backend.Server{
		Log:           zap.NewNop(),
		Store:         backend.NewMemStore(backend.DemoCatalog()),
		JWT:           backend.NewTokenMaker(jwtSecret, 24*time.Hour),
		PaymentKeyID:  "rzp_test",
		PaymentSecret: paymentSecret,
	}
	h := backend.NewHandler(s, backend.HTTPDeps{Log: zap.NewNop(), Service: "backend"})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func signup(t *testing.T, c *http.Client, base string) model.AuthResponse {
	t.Helper()

	resp, raw := doJSON(t, c, http.MethodPost, base+"/user/signup", model.Registration{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "password123",
		Phone:    "9876543210",
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status=%d body=%s", resp.StatusCode, string(raw))
	}

	var ar model.AuthResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		t.Fatalf("decode signup: %v body=%s", err, string(raw))
	}
	if ar.Token == "" || ar.Result.ID == "" || ar.Cart.CartNo == "" {
		t.Fatalf("incomplete auth response: %+v", ar)
	}
	return ar
}

func TestBackend_LoginAndCart(t *testing.T) {
	ts := newBackendTS(t)
	c := &http.Client{}
	ar := signup(t, c, ts.URL)

	{
		resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/user/login", model.Credentials{
			Email: "ASHA@example.com", Password: "password123",
		}, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("login status=%d body=%s", resp.StatusCode, string(raw))
		}
	}

	{
		resp, _ := doJSON(t, c, http.MethodPost, ts.URL+"/user/login", model.Credentials{
			Email: "asha@example.com", Password: "wrong-password",
		}, "")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("bad login status=%d", resp.StatusCode)
		}
	}

	add := model.CartMutation{CartNo: ar.Cart.CartNo, ProductID: "bk-road-aero", Qty: 2}
	if resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/cart/add", add, ar.Token); resp.StatusCode != http.StatusOK {
		t.Fatalf("add status=%d body=%s", resp.StatusCode, string(raw))
	}

	add.Qty = 1
	if resp, _ := doJSON(t, c, http.MethodPost, ts.URL+"/cart/add", add, ar.Token); resp.StatusCode != http.StatusConflict {
		t.Fatalf("add over stock status=%d", resp.StatusCode)
	}

	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/cart/fetch/"+ar.Cart.CartNo, nil, ar.Token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fetch status=%d body=%s", resp.StatusCode, string(raw))
	}
	var cart model.CartPayload
	if err := json.Unmarshal(raw, &cart); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(cart.Products) != 1 || cart.Products[0].Qty != 2 {
		t.Fatalf("cart=%+v", cart)
	}

	if resp, _ := doJSON(t, c, http.MethodPatch, ts.URL+"/cart/clearcart/"+ar.Cart.CartNo, nil, ar.Token); resp.StatusCode != http.StatusOK {
		t.Fatalf("clearcart status=%d", resp.StatusCode)
	}
}

func TestBackend_ProtectedRoutesRequireToken(t *testing.T) {
	ts := newBackendTS(t)
	c := &http.Client{}

	resp, raw := doJSON(t, c, http.MethodGet, ts.URL+"/cart/fetch/c_1", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/products/fetchall", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("catalog status=%d", resp.StatusCode)
	}
}

func TestBackend_OtherUsersCartIsForbidden(t *testing.T) {
	ts := newBackendTS(t)
	c := &http.Client{}
	ar := signup(t, c, ts.URL)

	resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/user/signup", model.Registration{
		Name: "Ravi", Email: "ravi@example.com", Password: "password123", Phone: "9876500000",
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("second signup status=%d body=%s", resp.StatusCode, string(raw))
	}
	var other model.AuthResponse
	if err := json.Unmarshal(raw, &other); err != nil {
		t.Fatalf("decode: %v", err)
	}

	resp, _ = doJSON(t, c, http.MethodGet, ts.URL+"/cart/fetch/"+ar.Cart.CartNo, nil, other.Token)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestBackend_UpdateEmailRotatesToken(t *testing.T) {
	ts := newBackendTS(t)
	c := &http.Client{}
	ar := signup(t, c, ts.URL)

	name := "Asha K"
	resp, raw := doJSON(t, c, http.MethodPatch, ts.URL+"/user/update/"+ar.Result.ID, model.ProfilePatch{Name: &name}, ar.Token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status=%d body=%s", resp.StatusCode, string(raw))
	}
	var ur model.UpdateUserResponse
	if err := json.Unmarshal(raw, &ur); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ur.Token != nil {
		t.Fatalf("token rotated without an email change")
	}

	email := "asha.k@example.com"
	_, raw = doJSON(t, c, http.MethodPatch, ts.URL+"/user/update/"+ar.Result.ID, model.ProfilePatch{Email: &email}, ar.Token)
	ur = model.UpdateUserResponse{}
	if err := json.Unmarshal(raw, &ur); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ur.Token == nil || *ur.Token == "" || ur.Result.Email != email {
		t.Fatalf("email change response=%s", string(raw))
	}
}

func TestBackend_CheckoutVerifiesSignature(t *testing.T) {
	ts := newBackendTS(t)
	c := &http.Client{}
	ar := signup(t, c, ts.URL)

	resp, raw := doJSON(t, c, http.MethodPost, ts.URL+"/orders/create-razorpay-order", model.CreateIntentRequest{Amount: 899950}, ar.Token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("intent status=%d body=%s", resp.StatusCode, string(raw))
	}
	var in model.OrderIntent
	if err := json.Unmarshal(raw, &in); err != nil {
		t.Fatalf("decode intent: %v", err)
	}

	v := model.Verification{
		UserID:         ar.Result.ID,
		Receipt:        in.Receipt,
		PaymentID:      "pay_1",
		GatewayOrderID: in.OrderID,
		Signature:      "forged",
		Products:       []model.OrderLine{{ProductID: "bk-kids-20", Name: "Sprout 20", Qty: 1, Price: decimal.RequireFromString("8999.50")}},
		TotalAmount:    decimal.RequireFromString("8999.50"),
	}
	if resp, _ := doJSON(t, c, http.MethodPost, ts.URL+"/orders/verify-payment-and-save-order", v, ar.Token); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("forged signature status=%d", resp.StatusCode)
	}

	v.Signature = backend.SignPayment(paymentSecret, in.OrderID, v.PaymentID)
	resp, raw = doJSON(t, c, http.MethodPost, ts.URL+"/orders/verify-payment-and-save-order", v, ar.Token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("verify status=%d body=%s", resp.StatusCode, string(raw))
	}

	if resp, _ := doJSON(t, c, http.MethodPost, ts.URL+"/orders/verify-payment-and-save-order", v, ar.Token); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("replayed confirmation status=%d", resp.StatusCode)
	}

	resp, raw = doJSON(t, c, http.MethodGet, ts.URL+"/orders/get-orders/"+ar.Result.ID, nil, ar.Token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("orders status=%d", resp.StatusCode)
	}
	var orders []model.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		t.Fatalf("decode orders: %v", err)
	}
	if len(orders) != 1 || orders[0].Receipt != in.Receipt {
		t.Fatalf("orders=%s", string(raw))
	}
}
