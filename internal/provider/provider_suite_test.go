package provider_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cloudwego/eino/schema"
	"github.com/joho/godotenv"

	"github.com/dkaus1/vscode-ai-ext/internal/provider"
	"github.com/dkaus1/vscode-ai-ext/internal/request"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

func TestProviderSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Provider Suite")
}

var _ = BeforeSuite(func() {
	_ = godotenv.Load("../../.env")
})

// roundTrip builds a request with v, sends it through a request controller
// and parses the reply.
func roundTrip(v provider.Variant, endpoint, token, question string) (*provider.CanonicalResponse, error) {
	in := &provider.BuildInput{
		Endpoint:       endpoint,
		Messages:       append(types.SystemMessages(), &schema.Message{Role: schema.User, Content: question}),
		SystemMessages: types.SystemMessages(),
		AuthToken:      token,
		Params:         provider.Params{Model: os.Getenv("AICC_MODEL"), Temperature: 0.7, TopP: 1, MaxTokens: 256},
		Channel:        request.ChannelPrimary,
		RequestID:      request.NewID(),
	}
	d, err := v.BuildRequest(in)
	Expect(err).NotTo(HaveOccurred())

	m := request.NewManager()
	c, err := m.CreateController(context.Background(), d.RequestID, d.Channel)
	Expect(err).NotTo(HaveOccurred())
	defer m.RemoveController(d.RequestID, d.Channel)

	resp, err := c.FetchData(d)
	if err != nil {
		return nil, err
	}
	Expect(resp.StatusCode).To(Equal(http.StatusOK))
	return v.ParseResponse(&provider.ParseInput{Body: resp.Body, IsJSON: resp.IsJSON(), Merge: func() string { return "" }})
}

var _ = Describe("Generic variant", func() {
	var server *httptest.Server

	BeforeEach(func() {
		// Echo the question back as a plain-text answer.
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Header.Get("Authorization")).To(BeEmpty())

			var body struct {
				Question     string `json:"question"`
				SystemPrompt string `json:"system_prompt"`
			}
			data, _ := io.ReadAll(r.Body)
			Expect(json.Unmarshal(data, &body)).To(Succeed())
			Expect(body.SystemPrompt).To(Equal(provider.GenericSystemPrompt))

			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(body.Question))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("round-trips the user content", func() {
		resp, err := roundTrip(provider.Generic{}, server.URL, "unused", "print hello world in go")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content()).To(Equal("print hello world in go"))
		Expect(resp.Message.Role).To(Equal(schema.Assistant))
		Expect(resp.FinishReason).To(Equal(types.FinishStop))
	})
})

var _ = Describe("Completion variant", func() {
	var server *httptest.Server

	BeforeEach(func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Header.Get("Authorization")).To(Equal("Bearer sk-suite"))

			var body struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			data, _ := io.ReadAll(r.Body)
			Expect(json.Unmarshal(data, &body)).To(Succeed())
			last := body.Messages[len(body.Messages)-1]

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": "echo: " + last.Content},
					"finish_reason": "stop",
				}},
				"usage": map[string]int{"prompt_tokens": 3, "completion_tokens": 4, "total_tokens": 7},
			})
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("parses choices and usage", func() {
		resp, err := roundTrip(provider.Completion{}, server.URL, "sk-suite", "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content()).To(Equal("echo: hello"))
		Expect(resp.Raw.TokenUsage).NotTo(BeNil())
		Expect(resp.Raw.TokenUsage.TotalTokens).To(Equal(7))
	})
})

var _ = Describe("Live backend", func() {
	It("answers a short question", func() {
		endpoint := os.Getenv("AICC_LIVE_ENDPOINT")
		if endpoint == "" {
			Skip("AICC_LIVE_ENDPOINT not set")
		}
		kind := types.ProviderKind(os.Getenv("AICC_LIVE_KIND"))
		if kind == "" {
			kind = types.KindCompletion
		}

		v, err := provider.NewRegistry().Get(kind)
		Expect(err).NotTo(HaveOccurred())

		resp, err := roundTrip(v, endpoint, os.Getenv("AICC_ACCESS_TOKEN"), "Reply with the single word: pong")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Content()).NotTo(BeEmpty())
	})
})
