package persistence

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/database"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/common/log"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/entity"
	"github.com/dfialho05/TAES2025-G3-DDV-sub002/core/domain/repository"
)

var ErrMongodb = errors.New("mongodb operation failed")

type MatchRecordRepository struct {
	mongo *database.MongoManager
}

func NewMatchRecordRepository(mongo *database.MongoManager) repository.MatchRecordRepository {
	return &MatchRecordRepository{mongo: mongo}
}

// CreateMatchRecord 保存对局记录（元数据）
// token 仅用于审计日志，记录系统本身在可信边界内
func (r *MatchRecordRepository) CreateMatchRecord(ctx context.Context, token string, record *entity.MatchRecord) (primitive.ObjectID, error) {
	collection := r.mongo.Db.Collection("match_records")

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		log.Error("保存对局记录失败: session=%s, err=%v", record.SessionID, err)
		return primitive.NilObjectID, ErrMongodb
	}

	log.Debug("对局记录已创建: record=%s, session=%s, token_len=%d",
		record.ID.Hex(), record.SessionID, len(token))
	return record.ID, nil
}

// SettleRound 回合结束，追加一条回合结算
func (r *MatchRecordRepository) SettleRound(ctx context.Context, token string, recordID primitive.ObjectID, round entity.RoundResult) error {
	collection := r.mongo.Db.Collection("match_records")

	update := bson.M{
		"$push": bson.M{"rounds": round},
	}
	res, err := collection.UpdateOne(ctx, bson.M{"_id": recordID}, update)
	if err != nil {
		log.Error("回合结算落库失败: record=%s, round=%d, err=%v", recordID.Hex(), round.RoundNumber, err)
		return ErrMongodb
	}
	if res.MatchedCount == 0 {
		return repository.ErrMatchRecordNotFound
	}
	return nil
}

// SettleMatch 对局结束，落最终结果并关闭记录
func (r *MatchRecordRepository) SettleMatch(ctx context.Context, token string, recordID primitive.ObjectID, result *entity.MatchFinalResult) error {
	collection := r.mongo.Db.Collection("match_records")

	update := bson.M{
		"$set": bson.M{
			"final_result": result,
			"status":       "completed",
			"end_time":     primitive.NewDateTimeFromTime(nowUTC()),
		},
	}
	res, err := collection.UpdateOne(ctx, bson.M{"_id": recordID}, update)
	if err != nil {
		log.Error("最终结算落库失败: record=%s, err=%v", recordID.Hex(), err)
		return ErrMongodb
	}
	if res.MatchedCount == 0 {
		return repository.ErrMatchRecordNotFound
	}

	log.Info("对局记录已结算: record=%s, winner=%s", recordID.Hex(), result.WinnerID)
	return nil
}

// CancelRecord 看门狗回收会话时取消记录
func (r *MatchRecordRepository) CancelRecord(ctx context.Context, recordID primitive.ObjectID, reason string) error {
	collection := r.mongo.Db.Collection("match_records")

	update := bson.M{
		"$set": bson.M{
			"status":        "cancelled",
			"cancel_reason": reason,
			"end_time":      primitive.NewDateTimeFromTime(nowUTC()),
		},
	}
	res, err := collection.UpdateOne(ctx, bson.M{"_id": recordID}, update)
	if err != nil {
		log.Error("取消对局记录失败: record=%s, err=%v", recordID.Hex(), err)
		return ErrMongodb
	}
	if res.MatchedCount == 0 {
		return repository.ErrMatchRecordNotFound
	}

	log.Info("对局记录已取消: record=%s, reason=%s", recordID.Hex(), reason)
	return nil
}

// FindMatchRecord 根据ID查找对局记录
func (r *MatchRecordRepository) FindMatchRecord(ctx context.Context, recordID primitive.ObjectID) (*entity.MatchRecord, error) {
	collection := r.mongo.Db.Collection("match_records")

	var record entity.MatchRecord
	err := collection.FindOne(ctx, bson.M{"_id": recordID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrMatchRecordNotFound
		}
		log.Error("查询对局记录失败: record=%s, err=%v", recordID.Hex(), err)
		return nil, err
	}
	return &record, nil
}
