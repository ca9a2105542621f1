package vertex

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cloud.google.com/go/auth"
	"github.com/futig/doc-chat/internal/entity"
	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"
)

// modelsAPI is the Gemini generation call, satisfied by *genai.Models
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// modelProvider hands out a Gemini client bound to a project and location
type modelProvider interface {
	Models(ctx context.Context, projectID, location string) (modelsAPI, error)
}

const (
	genaiClientTTL     = 30 * time.Minute
	genaiClientCleanup = 5 * time.Minute
	maxGenaiClients    = 32
)

// genaiClients caches Vertex-backed genai clients per project and location.
// project_id arrives with the request, so the cache is bounded and entries expire.
type genaiClients struct {
	httpClient  *http.Client
	credentials *auth.Credentials
	maxClients  int

	mu      sync.Mutex
	clients *cache.Cache
}

func newGenaiClients(httpClient *http.Client, creds *auth.Credentials) *genaiClients {
	return &genaiClients{
		httpClient:  httpClient,
		credentials: creds,
		maxClients:  maxGenaiClients,
		clients:     cache.New(genaiClientTTL, genaiClientCleanup),
	}
}

func (g *genaiClients) Models(ctx context.Context, projectID, location string) (modelsAPI, error) {
	key := projectID + "/" + location

	g.mu.Lock()
	defer g.mu.Unlock()

	if v, ok := g.clients.Get(key); ok {
		c := v.(*genai.Client)
		g.clients.SetDefault(key, c)
		return c.Models, nil
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:     projectID,
		Location:    location,
		Backend:     genai.BackendVertexAI,
		HTTPClient:  g.httpClient,
		Credentials: g.credentials,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if g.clients.ItemCount() >= g.maxClients {
		g.evictOldest()
	}
	g.clients.SetDefault(key, c)
	return c.Models, nil
}

// evictOldest drops expired clients, then the least recently used one if still full.
// genai clients hold no connections of their own, so dropping them is enough.
func (g *genaiClients) evictOldest() {
	g.clients.DeleteExpired()

	items := g.clients.Items()
	if len(items) < g.maxClients {
		return
	}

	var (
		victim   string
		earliest int64
	)
	for k, item := range items {
		if victim == "" || item.Expiration < earliest {
			victim = k
			earliest = item.Expiration
		}
	}
	g.clients.Delete(victim)
}

func retrievalTool(corpus entity.CorpusHandle, topK int) *genai.Tool {
	return &genai.Tool{
		Retrieval: &genai.Retrieval{
			VertexRAGStore: &genai.VertexRAGStore{
				RAGResources: []*genai.VertexRAGStoreRAGResource{
					{RAGCorpus: corpus.String()},
				},
				SimilarityTopK: genai.Ptr(int32(topK)),
			},
		},
	}
}

// citations turns the retrieved contexts the answer was grounded on into citations.
// A chunk's score is the highest confidence of any grounding support pointing at it.
func citations(resp *genai.GenerateContentResponse) []entity.Citation {
	out := []entity.Citation{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return out
	}
	gm := resp.Candidates[0].GroundingMetadata

	scores := make(map[int]float64)
	for _, support := range gm.GroundingSupports {
		if support == nil {
			continue
		}
		for i, idx := range support.GroundingChunkIndices {
			if i >= len(support.ConfidenceScores) {
				break
			}
			score := float64(support.ConfidenceScores[i])
			if score > scores[int(idx)] {
				scores[int(idx)] = score
			}
		}
	}

	for i, chunk := range gm.GroundingChunks {
		if chunk == nil || chunk.RetrievedContext == nil {
			continue
		}
		rc := chunk.RetrievedContext

		source := rc.URI
		if source == "" {
			source = rc.Title
		}

		out = append(out, entity.Citation{
			Text:   rc.Text,
			Source: source,
			Score:  scores[i],
		})
	}
	return out
}
