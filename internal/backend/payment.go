package backend

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayment is the gateway's signature over "orderID|paymentID".
func SignPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(secret, orderID, paymentID, signature string) bool {
	want := SignPayment(secret, orderID, paymentID)
	return hmac.Equal([]byte(want), []byte(signature))
}
