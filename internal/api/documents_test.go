package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calegray/codedown/internal/model"
)

const testDoc = "# Notes\n" +
	"```python {cmd=true}\nprint(1+1)\n```\n" +
	"```sh {cmd=true run_on_save}\necho hi\n```\n" +
	"```text\nnot executable\n```\n"

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func createTestDocument(t *testing.T, baseURL string) createDocumentResponse {
	t.Helper()
	resp := postJSON(t, baseURL+"/v1/documents", createDocumentRequest{ID: "doc-1", Text: testDoc})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var body createDocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestCreateDocument(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := createTestDocument(t, ts.URL)
	if body.DocumentID != "doc-1" {
		t.Errorf("DocumentID = %q, want doc-1", body.DocumentID)
	}
	if len(body.ChunkIDs) != 2 {
		t.Errorf("ChunkIDs = %v, want the two executable chunks", body.ChunkIDs)
	}
}

func TestCreateDocumentInvalidBody(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/documents", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListChunks(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	createTestDocument(t, ts.URL)

	resp, err := http.Get(ts.URL + "/v1/documents/doc-1/chunks")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Chunks []chunkView `json:"chunks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(body.Chunks))
	}
	if body.Chunks[0].ID != "chunk-0" || body.Chunks[0].Language != "python" {
		t.Errorf("chunks[0] = %+v, want chunk-0/python", body.Chunks[0])
	}
	if !body.Chunks[1].RunOnSave {
		t.Error("chunks[1].RunOnSave = false, want true")
	}
}

func TestGetChunkNotFound(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	createTestDocument(t, ts.URL)

	resp, err := http.Get(ts.URL + "/v1/documents/doc-1/chunks/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/v1/documents/unknown-doc/chunks/chunk-0")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown document status = %d, want 404", resp.StatusCode)
	}
}

func TestRunChunkEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	createTestDocument(t, ts.URL)

	resp := postJSON(t, ts.URL+"/v1/documents/doc-1/chunks/chunk-0/run", runRequest{})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var result model.ChunkResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != model.StatusSuccess {
		t.Errorf("Status = %q, want success", result.Status)
	}
	if result.ChunkID != "chunk-0" {
		t.Errorf("ChunkID = %q, want chunk-0", result.ChunkID)
	}

	// The run is now visible in the history endpoints.
	histResp, err := http.Get(ts.URL + "/v1/runs")
	if err != nil {
		t.Fatalf("GET /v1/runs: %v", err)
	}
	defer histResp.Body.Close()
	var hist listRunsResponse
	if err := json.NewDecoder(histResp.Body).Decode(&hist); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if hist.Total != 1 {
		t.Fatalf("run history total = %d, want 1", hist.Total)
	}
	if hist.Runs[0].ChunkID != "chunk-0" {
		t.Errorf("run chunk id = %q, want chunk-0", hist.Runs[0].ChunkID)
	}
}

func TestRunAllEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	createTestDocument(t, ts.URL)

	resp := postJSON(t, ts.URL+"/v1/documents/doc-1/run", runRequest{})
	defer resp.Body.Close()

	var body struct {
		Results []model.ChunkResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Results) != 2 {
		t.Errorf("len(results) = %d, want 2", len(body.Results))
	}
}

func TestRunOnSaveEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	createTestDocument(t, ts.URL)

	resp := postJSON(t, ts.URL+"/v1/documents/doc-1/run-on-save", runRequest{})
	defer resp.Body.Close()

	var body struct {
		Results []model.ChunkResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Results) != 1 {
		t.Fatalf("len(results) = %d, want just the run_on_save chunk", len(body.Results))
	}
	if body.Results[0].ChunkID != "chunk-1" {
		t.Errorf("ran %q, want chunk-1", body.Results[0].ChunkID)
	}
}

func TestReleaseDocument(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	createTestDocument(t, ts.URL)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/documents/doc-1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	// The document is gone afterwards.
	getResp, err := http.Get(ts.URL + "/v1/documents/doc-1/chunks")
	if err != nil {
		t.Fatalf("GET after release: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("status after release = %d, want 404", getResp.StatusCode)
	}
}

func TestGetRunNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/runs/nonexistent")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
