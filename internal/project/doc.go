// Package project はプロジェクトの登録・検索・集計を提供する。
//
// プロジェクトの削除は論理削除であり、削除済みのプロジェクトは
// 取得・更新・削除のいずれでも存在しないものとして扱う。
package project
