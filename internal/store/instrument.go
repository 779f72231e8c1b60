package store

import "context"

// OpRecorder counts store operations by kind and outcome.
type OpRecorder interface {
	RecordStoreOp(op string, ok bool)
}

// Instrument wraps a Client so every operation feeds the recorder.
func Instrument(client Client, recorder OpRecorder) Client {
	if recorder == nil {
		return client
	}
	return &instrumentedClient{client: client, recorder: recorder}
}

type instrumentedClient struct {
	client   Client
	recorder OpRecorder
}

func (c *instrumentedClient) Subscribe(ctx context.Context, query Query) (Subscription, error) {
	sub, err := c.client.Subscribe(ctx, query)
	c.recorder.RecordStoreOp("subscribe", err == nil)
	return sub, err
}

func (c *instrumentedClient) GetDocument(ctx context.Context, path, docID string) (Document, error) {
	doc, err := c.client.GetDocument(ctx, path, docID)
	c.recorder.RecordStoreOp("get", err == nil)
	return doc, err
}

func (c *instrumentedClient) CreateDocument(ctx context.Context, path string, fields map[string]any) (Document, error) {
	doc, err := c.client.CreateDocument(ctx, path, fields)
	c.recorder.RecordStoreOp("create", err == nil)
	return doc, err
}

func (c *instrumentedClient) UpdateFields(ctx context.Context, path, docID string, fields map[string]any) error {
	err := c.client.UpdateFields(ctx, path, docID, fields)
	c.recorder.RecordStoreOp("update", err == nil)
	return err
}

func (c *instrumentedClient) UpdateFieldsIf(ctx context.Context, path, docID string, expect, fields map[string]any) error {
	err := c.client.UpdateFieldsIf(ctx, path, docID, expect, fields)
	c.recorder.RecordStoreOp("update_if", err == nil)
	return err
}

func (c *instrumentedClient) IncrementField(ctx context.Context, path, docID, field string, delta int64) error {
	err := c.client.IncrementField(ctx, path, docID, field, delta)
	c.recorder.RecordStoreOp("increment", err == nil)
	return err
}

func (c *instrumentedClient) DeleteDocument(ctx context.Context, path, docID string) error {
	err := c.client.DeleteDocument(ctx, path, docID)
	c.recorder.RecordStoreOp("delete", err == nil)
	return err
}

func (c *instrumentedClient) AppendToSubcollection(ctx context.Context, parentPath, parentID, sub string, fields map[string]any) (Document, error) {
	doc, err := c.client.AppendToSubcollection(ctx, parentPath, parentID, sub, fields)
	c.recorder.RecordStoreOp("append", err == nil)
	return doc, err
}
