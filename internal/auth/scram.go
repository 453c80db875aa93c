// Package auth implements the SCRAM-SHA-256 client conversation (RFC 5802,
// RFC 7677) used to authenticate driver connections during the handshake.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/corvusdb/corvus-go/internal/constants"
	cerrors "github.com/corvusdb/corvus-go/internal/errors"
)

// Credential holds the username and password for a SCRAM conversation.
type Credential struct {
	Username string
	Password string
}

// Conversation drives one SCRAM-SHA-256 exchange. It is single-use: a new
// conversation is created per connection handshake.
type Conversation struct {
	cred        Credential
	clientNonce string
	firstBare   string
	serverSig   []byte
	done        bool
}

// NewConversation creates a conversation with a random client nonce.
func NewConversation(cred Credential) (*Conversation, error) {
	if cred.Username == "" || cred.Password == "" {
		return nil, cerrors.ErrInvalidCredential
	}

	raw := make([]byte, constants.ScramNonceSize)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return newConversation(cred, base64.StdEncoding.EncodeToString(raw))
}

// newConversation creates a conversation with a fixed nonce. Tests use this
// to replay RFC 7677 vectors.
func newConversation(cred Credential, nonce string) (*Conversation, error) {
	if cred.Username == "" || cred.Password == "" {
		return nil, cerrors.ErrInvalidCredential
	}
	return &Conversation{cred: cred, clientNonce: nonce}, nil
}

// ClientFirst returns the client-first message.
func (c *Conversation) ClientFirst() string {
	c.firstBare = "n=" + escapeUsername(c.cred.Username) + ",r=" + c.clientNonce
	return "n,," + c.firstBare
}

// HandleServerFirst consumes the server-first message and returns the
// client-final message carrying the proof.
func (c *Conversation) HandleServerFirst(serverFirst string) (string, error) {
	fields, err := parseFields(serverFirst)
	if err != nil {
		return "", err
	}

	nonce := fields["r"]
	if !strings.HasPrefix(nonce, c.clientNonce) || nonce == c.clientNonce {
		return "", cerrors.ErrAuthFailed
	}

	salt, err := base64.StdEncoding.DecodeString(fields["s"])
	if err != nil {
		return "", cerrors.ErrAuthFailed
	}

	iterations, err := strconv.Atoi(fields["i"])
	if err != nil || iterations < constants.ScramMinIterations {
		return "", cerrors.ErrAuthFailed
	}

	salted := pbkdf2.Key([]byte(c.cred.Password), salt, iterations, sha256.Size, sha256.New)
	clientKey := hmacSum(salted, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)

	withoutProof := "c=biws,r=" + nonce
	authMessage := c.firstBare + "," + serverFirst + "," + withoutProof

	clientSig := hmacSum(storedKey[:], []byte(authMessage))
	proof := make([]byte, len(clientKey))
	for i := range clientKey {
		proof[i] = clientKey[i] ^ clientSig[i]
	}

	serverKey := hmacSum(salted, []byte("Server Key"))
	c.serverSig = hmacSum(serverKey, []byte(authMessage))

	return withoutProof + ",p=" + base64.StdEncoding.EncodeToString(proof), nil
}

// VerifyServerFinal checks the server-final message against the expected
// server signature, completing the conversation.
func (c *Conversation) VerifyServerFinal(serverFinal string) error {
	fields, err := parseFields(serverFinal)
	if err != nil {
		return err
	}
	if errMsg, ok := fields["e"]; ok && errMsg != "" {
		return cerrors.ErrAuthFailed
	}

	sig, err := base64.StdEncoding.DecodeString(fields["v"])
	if err != nil {
		return cerrors.ErrServerSignature
	}
	if c.serverSig == nil || !hmac.Equal(sig, c.serverSig) {
		return cerrors.ErrServerSignature
	}

	c.done = true
	return nil
}

// Done reports whether the conversation completed successfully.
func (c *Conversation) Done() bool {
	return c.done
}

func hmacSum(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// parseFields splits a "k=v,k=v" SCRAM message into its attributes.
func parseFields(msg string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(msg, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || len(k) != 1 {
			return nil, cerrors.ErrAuthFailed
		}
		fields[k] = v
	}
	return fields, nil
}

// escapeUsername applies the RFC 5802 username escaping rules.
func escapeUsername(name string) string {
	name = strings.ReplaceAll(name, "=", "=3D")
	return strings.ReplaceAll(name, ",", "=2C")
}
