package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soaringjerry/pregate/internal/models"
)

const submissionsCollection = "submissions"

// MongoLedger stores the submission ledger in MongoDB. Surveys and questions stay in the
// primary store; only the append-only rows move.
type MongoLedger struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type answerDoc struct {
	Single *string  `bson:"single,omitempty"`
	Multi  []string `bson:"multi,omitempty"`
}

type submissionDoc struct {
	ID           string               `bson:"_id"`
	SurveyID     string               `bson:"survey_id"`
	SessionID    string               `bson:"user_session_id"`
	Answers      map[string]answerDoc `bson:"answers"`
	ScorePercent float64              `bson:"score_percent"`
	Passed       bool                 `bson:"passed"`
	IPAddress    string               `bson:"ip_address,omitempty"`
	UserAgent    string               `bson:"user_agent,omitempty"`
	SubmittedAt  time.Time            `bson:"submitted_at"`
}

// ConnectMongo connects, pings and returns a ledger bound to database dbName.
func ConnectMongo(ctx context.Context, uri, dbName string) (*MongoLedger, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	l := NewMongoLedger(client, dbName)
	if err := l.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return l, nil
}

func NewMongoLedger(client *mongo.Client, dbName string) *MongoLedger {
	return &MongoLedger{
		client:     client,
		collection: client.Database(dbName).Collection(submissionsCollection),
	}
}

// submissionsIndex backs ListSubmissions: one survey, newest first.
func submissionsIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{{Key: "survey_id", Value: 1}, {Key: "submitted_at", Value: -1}},
	}
}

// ensureIndexes runs once per connection, from ConnectMongo.
func (m *MongoLedger) ensureIndexes(ctx context.Context) error {
	if _, err := m.collection.Indexes().CreateOne(ctx, submissionsIndex()); err != nil {
		return fmt.Errorf("create submissions index: %w", err)
	}
	return nil
}

func (m *MongoLedger) AppendSubmission(ctx context.Context, sub *models.Submission) error {
	if _, err := m.collection.InsertOne(ctx, toSubmissionDoc(sub)); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (m *MongoLedger) ListSubmissions(ctx context.Context, surveyID string) ([]*models.Submission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"survey_id": surveyID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find submissions: %w", err)
	}
	var docs []submissionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	out := make([]*models.Submission, 0, len(docs))
	for i := range docs {
		out = append(out, fromSubmissionDoc(&docs[i]))
	}
	return out, nil
}

func (m *MongoLedger) Ping(ctx context.Context) error { return m.client.Ping(ctx, nil) }

func (m *MongoLedger) Close(ctx context.Context) error { return m.client.Disconnect(ctx) }

func toSubmissionDoc(sub *models.Submission) *submissionDoc {
	answers := make(map[string]answerDoc, len(sub.Answers))
	for id, v := range sub.Answers {
		if v.IsMultiple() {
			answers[id] = answerDoc{Multi: v.Tokens()}
			continue
		}
		tok := ""
		if toks := v.Tokens(); len(toks) == 1 {
			tok = toks[0]
		}
		answers[id] = answerDoc{Single: &tok}
	}
	return &submissionDoc{
		ID:           sub.ID,
		SurveyID:     sub.SurveyID,
		SessionID:    sub.SessionID,
		Answers:      answers,
		ScorePercent: sub.ScorePercent,
		Passed:       sub.Passed,
		IPAddress:    sub.IPAddress,
		UserAgent:    sub.UserAgent,
		SubmittedAt:  sub.SubmittedAt.UTC(),
	}
}

func fromSubmissionDoc(d *submissionDoc) *models.Submission {
	answers := make(map[string]models.AnswerValue, len(d.Answers))
	for id, a := range d.Answers {
		if a.Single != nil {
			answers[id] = models.Single(*a.Single)
		} else {
			answers[id] = models.Multiple(a.Multi...)
		}
	}
	return &models.Submission{
		ID:           d.ID,
		SurveyID:     d.SurveyID,
		SessionID:    d.SessionID,
		Answers:      answers,
		ScorePercent: d.ScorePercent,
		Passed:       d.Passed,
		IPAddress:    d.IPAddress,
		UserAgent:    d.UserAgent,
		SubmittedAt:  d.SubmittedAt.UTC(),
	}
}
